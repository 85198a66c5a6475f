// Package export renders filtered contact and job-site lists as CSV
// downloads. Output carries a UTF-8 BOM so spreadsheet imports keep
// non-ASCII names intact.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/tmarchal/chantier/internal/contact"
	"github.com/tmarchal/chantier/internal/object"
	"github.com/tmarchal/chantier/internal/period"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

const dateLayout = "2006-01-02"

// Contacts writes the contact list as CSV, header row included.
func Contacts(w io.Writer, contacts []*contact.Contact, asOf time.Time) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("writing BOM: %w", err)
	}

	cw := csv.NewWriter(w)
	header := []string{"Name", "Roles", "Objects", "Email", "Phone", "Birthday",
		"Cost", "Working From", "Working To", "Status", "Favorite", "Blacklisted"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, c := range contacts {
		row := []string{
			c.Name,
			strings.Join(c.Roles, ", "),
			strings.Join(c.Objects, ", "),
			c.Email,
			c.Phone,
			formatDate(c.Birthday),
			formatCost(c.Cost),
			formatDate(c.WorkingFrom),
			formatDate(c.WorkingTo),
			period.Compute(c.WorkingFrom, c.WorkingTo, asOf).String(),
			formatBool(c.IsFavorite),
			formatBool(c.IsBlacklisted),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing contact row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// Objects writes the job-site list as CSV, header row included.
func Objects(w io.Writer, objects []*object.Object, asOf time.Time) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("writing BOM: %w", err)
	}

	cw := csv.NewWriter(w)
	header := []string{"Name", "Location", "Description", "Start", "End", "Status", "Inactive"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, o := range objects {
		row := []string{
			o.Name,
			o.Location,
			o.Description,
			formatDate(o.Start),
			formatDate(o.End),
			period.Compute(o.Start, o.End, asOf).String(),
			formatBool(o.Inactive),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing object row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}

func formatCost(c *float64) string {
	if c == nil {
		return ""
	}
	return strconv.FormatFloat(*c, 'f', -1, 64)
}

func formatBool(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
