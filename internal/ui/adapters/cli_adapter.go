package adapters

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/lance13c/shopassist/internal/autofill"
	"github.com/lance13c/shopassist/internal/database"
	"github.com/lance13c/shopassist/internal/store"
)

// MessageStyle selects the marker printed before a message
type MessageStyle int

const (
	StylePlain MessageStyle = iota
	StyleSuccess
	StyleError
	StyleWarning
	StyleInfo
)

// CLIAdapter prints command output and asks for line-based input
type CLIAdapter struct {
	reader *bufio.Reader
	out    io.Writer
}

// NewCLIAdapter creates an adapter reading from in and writing to out
func NewCLIAdapter(in io.Reader, out io.Writer) *CLIAdapter {
	return &CLIAdapter{
		reader: bufio.NewReader(in),
		out:    out,
	}
}

// ShowMessage displays a message with styling
func (c *CLIAdapter) ShowMessage(msg string, style MessageStyle) {
	switch style {
	case StyleSuccess:
		fmt.Fprintf(c.out, "✓ %s\n", msg)
	case StyleError:
		fmt.Fprintf(c.out, "✗ %s\n", msg)
	case StyleWarning:
		fmt.Fprintf(c.out, "⚠ %s\n", msg)
	case StyleInfo:
		fmt.Fprintf(c.out, "ℹ %s\n", msg)
	default:
		fmt.Fprintln(c.out, msg)
	}
}

// ShowError displays an error message
func (c *CLIAdapter) ShowError(err error) {
	c.ShowMessage(err.Error(), StyleError)
}

// ShowSuccess displays a success message
func (c *CLIAdapter) ShowSuccess(msg string) {
	c.ShowMessage(msg, StyleSuccess)
}

// ShowWarning displays a warning message
func (c *CLIAdapter) ShowWarning(msg string) {
	c.ShowMessage(msg, StyleWarning)
}

// ShowTable displays rows under headers with padded columns
func (c *CLIAdapter) ShowTable(headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, header := range headers {
		widths[i] = len([]rune(header))
	}
	for _, row := range rows {
		for i, cell := range row {
			if n := len([]rune(cell)); i < len(widths) && n > widths[i] {
				widths[i] = n
			}
		}
	}

	c.printTableRow(headers, widths)
	c.printTableSeparator(widths)
	for _, row := range rows {
		c.printTableRow(row, widths)
	}
}

// ShowJSON displays indented JSON
func (c *CLIAdapter) ShowJSON(data interface{}) {
	jsonBytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		c.ShowError(fmt.Errorf("failed to marshal JSON: %w", err))
		return
	}
	fmt.Fprintln(c.out, string(jsonBytes))
}

// ShowProfile prints the stored profile
func (c *CLIAdapter) ShowProfile(p store.Profile) {
	c.ShowTable([]string{"FIELD", "VALUE"}, [][]string{
		{"name", p.Name},
		{"phone", p.Phone},
		{"address", p.Address},
		{"postalCode", p.PostalCode},
		{"updatedAt", formatTime(p.UpdatedAt.IsZero(), p.UpdatedAt.Local().Format("2006-01-02 15:04:05"))},
	})
}

// ShowSettings prints the effective settings
func (c *CLIAdapter) ShowSettings(s store.Settings) {
	c.ShowTable([]string{"SETTING", "VALUE"}, [][]string{
		{"autoFill", onOff(s.AutoFillEnabled)},
		{"smartNav", onOff(s.SmartNavEnabled)},
		{"fillDelay", fmt.Sprintf("%dms", s.FillDelayMs)},
		{"paymentMethod", s.PaymentMethod},
		{"savedAt", formatTime(s.SavedAt.IsZero(), s.SavedAt.Local().Format("2006-01-02 15:04:05"))},
	})
}

// ShowFields prints a detection result in detection order
func (c *CLIAdapter) ShowFields(fields autofill.FieldMap) {
	if len(fields) == 0 {
		c.ShowWarning("No checkout fields detected")
		return
	}
	rows := make([][]string, 0, len(fields))
	for _, match := range fields {
		rows = append(rows, []string{string(match.Field), match.Selector, match.Element.Describe()})
	}
	c.ShowTable([]string{"FIELD", "SELECTOR", "ELEMENT"}, rows)
}

// ShowFillResult summarises one fill
func (c *CLIAdapter) ShowFillResult(result autofill.Result) {
	if !result.Completed() {
		c.ShowWarning("No checkout fields detected, nothing filled")
		return
	}
	c.ShowSuccess(fmt.Sprintf("Filled %s in %dms",
		strings.Join(autofill.FieldNames(result.Filled), ", "), result.Duration.Milliseconds()))
	if len(result.Skipped) > 0 {
		c.ShowMessage("Skipped (empty in profile): "+strings.Join(autofill.FieldNames(result.Skipped), ", "), StyleInfo)
	}
}

// ShowHistory prints fill runs newest first
func (c *CLIAdapter) ShowHistory(runs []database.FillRun) {
	if len(runs) == 0 {
		c.ShowMessage("No fill runs recorded yet", StyleInfo)
		return
	}
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		status := "ok"
		if run.Error != "" {
			status = "error: " + run.Error
		}
		rows = append(rows, []string{
			run.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			run.Source,
			run.URL,
			strings.Join(run.Filled, ","),
			fmt.Sprintf("%dms", run.DurationMs),
			status,
		})
	}
	c.ShowTable([]string{"WHEN", "SOURCE", "URL", "FILLED", "TOOK", "STATUS"}, rows)
}

// PromptProfile asks for each profile field, offering current values as
// defaults
func (c *CLIAdapter) PromptProfile(current store.Profile) (store.Profile, error) {
	var err error
	p := current
	if p.Name, err = c.AskString("Nama penerima", current.Name); err != nil {
		return store.Profile{}, err
	}
	if p.Phone, err = c.AskString("Nomor HP", current.Phone); err != nil {
		return store.Profile{}, err
	}
	if p.Address, err = c.AskString("Alamat", current.Address); err != nil {
		return store.Profile{}, err
	}
	if p.PostalCode, err = c.AskString("Kode pos", current.PostalCode); err != nil {
		return store.Profile{}, err
	}
	return p, nil
}

// AskString reads one line; an empty answer keeps defaultVal
func (c *CLIAdapter) AskString(prompt, defaultVal string) (string, error) {
	if defaultVal != "" {
		fmt.Fprintf(c.out, "%s [%s]: ", prompt, defaultVal)
	} else {
		fmt.Fprintf(c.out, "%s: ", prompt)
	}

	input, err := c.reader.ReadString('\n')
	if err != nil && (err != io.EOF || input == "") {
		return "", err
	}

	input = strings.TrimSpace(input)
	if input == "" {
		return defaultVal, nil
	}
	return input, nil
}

// AskYesNo reads a y/n answer
func (c *CLIAdapter) AskYesNo(prompt string, defaultVal bool) (bool, error) {
	defaultStr := "y/N"
	if defaultVal {
		defaultStr = "Y/n"
	}

	fmt.Fprintf(c.out, "%s [%s]: ", prompt, defaultStr)

	input, err := c.reader.ReadString('\n')
	if err != nil && (err != io.EOF || input == "") {
		return false, err
	}

	input = strings.ToLower(strings.TrimSpace(input))
	if input == "" {
		return defaultVal, nil
	}
	return input == "y" || input == "yes", nil
}

func (c *CLIAdapter) printTableRow(row []string, widths []int) {
	for i, cell := range row {
		if i < len(widths) {
			fmt.Fprintf(c.out, "%-*s  ", widths[i], cell)
		}
	}
	fmt.Fprintln(c.out)
}

func (c *CLIAdapter) printTableSeparator(widths []int) {
	for i, width := range widths {
		fmt.Fprint(c.out, strings.Repeat("-", width))
		if i < len(widths)-1 {
			fmt.Fprint(c.out, "  ")
		}
	}
	fmt.Fprintln(c.out)
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

func formatTime(zero bool, formatted string) string {
	if zero {
		return "-"
	}
	return formatted
}
