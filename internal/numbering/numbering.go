// Package numbering allocates the gapless business numbers printed on orders,
// invoices, delivery notes and stock movements.
package numbering

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/smallbiznis/gescom/internal/lock"
	"gorm.io/gorm"
)

var seqPadRe = regexp.MustCompile(`\{SEQ(\d+)\}`)

// Sequence is a number series backed by the seq column of a table.
type Sequence struct {
	Table    string
	Template string
}

var (
	Orders    = Sequence{Table: "orders", Template: "CMD-{SEQ6}"}
	Invoices  = Sequence{Table: "invoices", Template: "FAC-{SEQ6}"}
	Movements = Sequence{Table: "stock_movements", Template: "MVT-{SEQ6}"}
	Delivery  = Sequence{Table: "delivery_notes", Template: "BL-{SEQ6}"}
)

// LockKey must be held for the whole transaction that calls Next, otherwise
// two writers can read the same MAX(seq).
func (s Sequence) LockKey() string {
	return lock.Key("seq", s.Table)
}

// Next returns the next sequence value and its formatted number.
func (s Sequence) Next(ctx context.Context, tx *gorm.DB, at time.Time) (int64, string, error) {
	var next int64
	err := tx.WithContext(ctx).Raw(
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM ` + s.Table,
	).Scan(&next).Error
	if err != nil {
		return 0, "", err
	}
	numero, err := Format(s.Template, at, next)
	if err != nil {
		return 0, "", err
	}
	return next, numero, nil
}

// Format renders template with date tokens ({YYYY}, {YY}, {MM}, {DD}) and
// sequence tokens ({SEQ}, {SEQn} zero-padded to n digits).
func Format(template string, at time.Time, seq int64) (string, error) {
	if template == "" {
		return "", fmt.Errorf("number template is empty")
	}
	if seq <= 0 {
		return "", fmt.Errorf("invalid sequence: %d", seq)
	}

	out := template
	out = strings.ReplaceAll(out, "{YYYY}", at.Format("2006"))
	out = strings.ReplaceAll(out, "{YY}", at.Format("06"))
	out = strings.ReplaceAll(out, "{MM}", at.Format("01"))
	out = strings.ReplaceAll(out, "{DD}", at.Format("02"))
	out = strings.ReplaceAll(out, "{SEQ}", strconv.FormatInt(seq, 10))
	out = seqPadRe.ReplaceAllStringFunc(out, func(m string) string {
		match := seqPadRe.FindStringSubmatch(m)
		width, err := strconv.Atoi(match[1])
		if err != nil || width <= 0 {
			return m
		}
		return fmt.Sprintf("%0*d", width, seq)
	})

	if strings.ContainsAny(out, "{}") {
		return "", fmt.Errorf("unresolved token in number format: %s", out)
	}
	return out, nil
}
