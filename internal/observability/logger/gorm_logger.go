package logger

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"
)

// GormLoggerConfig configures the GORM zap logger.
type GormLoggerConfig struct {
	Level                gormlogger.LogLevel
	SlowThreshold        time.Duration
	IgnoreRecordNotFound bool
}

// DefaultGormLoggerConfig returns production-safe defaults.
func DefaultGormLoggerConfig() GormLoggerConfig {
	return GormLoggerConfig{
		Level:                gormlogger.Warn,
		SlowThreshold:        200 * time.Millisecond,
		IgnoreRecordNotFound: true,
	}
}

// GormLogger implements gormlogger.Interface with zap-backed structured logging.
type GormLogger struct {
	level                gormlogger.LogLevel
	slowThreshold        time.Duration
	ignoreRecordNotFound bool
}

// NewGormLogger builds a new GormLogger.
func NewGormLogger(cfg GormLoggerConfig) *GormLogger {
	return &GormLogger{
		level:                cfg.Level,
		slowThreshold:        cfg.SlowThreshold,
		ignoreRecordNotFound: cfg.IgnoreRecordNotFound,
	}
}

// LogMode returns a logger with the updated level.
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *l
	cp.level = level
	return &cp
}

// Info logs informational messages from GORM.
func (l *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.level < gormlogger.Info {
		return
	}
	fields := []zap.Field{zap.String("component", "gorm")}
	if len(data) > 0 {
		fields = append(fields, zap.Any("data", data))
	}
	FromContext(ctx).Info(msg, fields...)
}

// Warn logs warning messages from GORM.
func (l *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.level < gormlogger.Warn {
		return
	}
	fields := []zap.Field{zap.String("component", "gorm")}
	if len(data) > 0 {
		fields = append(fields, zap.Any("data", data))
	}
	FromContext(ctx).Warn(msg, fields...)
}

// Error logs error messages from GORM.
func (l *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.level < gormlogger.Error {
		return
	}
	fields := []zap.Field{zap.String("component", "gorm")}
	if len(data) > 0 {
		fields = append(fields, zap.Any("data", data))
	}
	FromContext(ctx).Error(msg, fields...)
}

// Trace logs SQL statements with structured fields.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	switch {
	case err != nil && l.level >= gormlogger.Error && (!errors.Is(err, gormlogger.ErrRecordNotFound) || !l.ignoreRecordNotFound):
		l.logQuery(ctx, fc, elapsed, err, zap.ErrorLevel)
	case l.slowThreshold != 0 && elapsed > l.slowThreshold && l.level >= gormlogger.Warn:
		// Slow row-locking reads mean another order or invoice batch holds the
		// same articles.
		l.logQuery(ctx, fc, elapsed, nil, zap.WarnLevel)
	case l.level >= gormlogger.Info:
		l.logQuery(ctx, fc, elapsed, nil, zap.DebugLevel)
	}
}

// ParamsFilter strips bound values so client contact data never reaches the logs.
func (l *GormLogger) ParamsFilter(_ context.Context, sql string, _ ...interface{}) (string, []interface{}) {
	return sql, nil
}

func (l *GormLogger) logQuery(ctx context.Context, fc func() (string, int64), elapsed time.Duration, err error, level zapcore.Level) {
	sql, rows := fc()
	statement := classifySQL(sql)
	fields := []zap.Field{
		zap.String("component", "gorm"),
		zap.String("sql", strings.TrimSpace(sql)),
		zap.String("operation", statement.operation),
		zap.Int64("duration_ms", elapsed.Milliseconds()),
	}
	if statement.table != "" {
		fields = append(fields, zap.String("table", statement.table))
	}
	if statement.locking {
		fields = append(fields, zap.Bool("row_lock", true))
	}
	if rows >= 0 {
		fields = append(fields, zap.Int64("rows_affected", rows))
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}

	// Writes to the stock and billing ledgers stay visible at Info so an
	// operator can replay a document's history without enabling debug.
	if level == zap.DebugLevel && statement.ledgerWrite() {
		level = zap.InfoLevel
	}

	log := FromContext(ctx)
	switch level {
	case zap.ErrorLevel:
		log.Error("gorm.query", fields...)
	case zap.WarnLevel:
		log.Warn("gorm.query", fields...)
	case zap.InfoLevel:
		log.Info("gorm.query", fields...)
	default:
		log.Debug("gorm.query", fields...)
	}
}

var _ gormlogger.Interface = (*GormLogger)(nil)

// ledgerTables hold the rows that make up a document's audit trail.
var ledgerTables = map[string]bool{
	"stock_movements":     true,
	"invoices":            true,
	"invoice_lines":       true,
	"payments":            true,
	"delivery_notes":      true,
	"delivery_note_lines": true,
}

type sqlStatement struct {
	operation string
	table     string
	locking   bool
}

func (s sqlStatement) ledgerWrite() bool {
	switch s.operation {
	case "INSERT", "UPDATE", "DELETE":
		return ledgerTables[s.table]
	}
	return false
}

type sqlWord struct {
	text  string
	depth int
}

func operationFromSQL(sql string) string {
	return classifySQL(sql).operation
}

// classifySQL finds the statement's verb and target table. A WITH prefix is
// skipped along with its parenthesised bodies; otherwise the first verb at
// any depth wins so a wrapped statement still classifies.
func classifySQL(sql string) sqlStatement {
	words := sqlWords(sql)
	out := sqlStatement{operation: "UNKNOWN"}
	if len(words) == 0 {
		return out
	}

	verbAt := -1
	cte := words[0].text == "WITH"
	for i, word := range words {
		if cte && word.depth != words[0].depth {
			continue
		}
		if isSQLVerb(word.text) {
			verbAt = i
			break
		}
	}
	if verbAt < 0 {
		return out
	}
	out.operation = words[verbAt].text
	out.table = tableAfterVerb(words[verbAt:])

	for i := verbAt; i+1 < len(words); i++ {
		if words[i].text == "FOR" && words[i+1].text == "UPDATE" {
			out.locking = true
			break
		}
	}
	return out
}

func isSQLVerb(word string) bool {
	switch word {
	case "SELECT", "INSERT", "UPDATE", "DELETE", "MERGE":
		return true
	}
	return false
}

func tableAfterVerb(words []sqlWord) string {
	verb := words[0]
	marker := ""
	switch verb.text {
	case "SELECT", "DELETE":
		marker = "FROM"
	case "INSERT", "MERGE":
		marker = "INTO"
	case "UPDATE":
		if len(words) > 1 {
			return strings.ToLower(words[1].text)
		}
		return ""
	}
	for i := 1; i+1 < len(words); i++ {
		if words[i].depth == verb.depth && words[i].text == marker {
			if words[i+1].depth != verb.depth {
				return ""
			}
			return strings.ToLower(words[i+1].text)
		}
	}
	return ""
}

// sqlWords splits sql into upper-cased identifiers and keywords with their
// parenthesis depth. Quoted literals are dropped; quoted identifiers keep
// their text.
func sqlWords(sql string) []sqlWord {
	var (
		words   []sqlWord
		current strings.Builder
		depth   int
		inQuote bool
	)
	flush := func() {
		if current.Len() > 0 {
			words = append(words, sqlWord{text: strings.ToUpper(current.String()), depth: depth})
			current.Reset()
		}
	}
	for _, r := range sql {
		if inQuote {
			if r == '\'' {
				inQuote = false
			}
			continue
		}
		switch {
		case r == '\'':
			flush()
			inQuote = true
		case r == '(':
			flush()
			depth++
		case r == ')':
			flush()
			if depth > 0 {
				depth--
			}
		case r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r):
			current.WriteRune(r)
		default:
			flush()
		}
	}
	flush()
	return words
}
