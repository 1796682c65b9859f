package stats

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/AlexMiaWat/1C-MCP-SERVER-OWN/internal/tui/theme"
)

// MarkdownTitle heads the summary section of the run log.
const MarkdownTitle = "## Сводная статистика тестов"

// Markdown renders the summary as the run log's markdown table.
func (s Summary) Markdown() string {
	var b strings.Builder
	b.WriteString(MarkdownTitle + "\n\n")
	b.WriteString("| Метод                  | Всего | Успешно | Ошибка | Пропущено | Процент успеха |\n")
	b.WriteString("|------------------------|------:|--------:|-------:|----------:|---------------:|\n")
	for _, r := range s.Rows {
		fmt.Fprintf(&b, "| %-22s | %5d | %7d | %6d | %9d | %13.1f%% |\n",
			r.Method, r.Total, r.Success, r.Errors, r.Skipped, r.SuccessRate)
	}
	t := s.Totals
	fmt.Fprintf(&b, "| %-22s | **%5d** | **%7d** | **%6d** | **%9d** | **%13.1f%%** |\n",
		"**Итого**", t.Total, t.Success, t.Errors, t.Skipped, t.SuccessRate)
	return b.String()
}

// Table renders the summary as a bordered terminal table.
func (s Summary) Table(th theme.Theme) string {
	rows := make([][]string, 0, len(s.Rows)+1)
	for _, r := range append(append([]Row(nil), s.Rows...), s.Totals) {
		rows = append(rows, []string{
			r.Method,
			strconv.Itoa(r.Total),
			strconv.Itoa(r.Success),
			strconv.Itoa(r.Errors),
			strconv.Itoa(r.Skipped),
			fmt.Sprintf("%.1f%%", r.SuccessRate),
		})
	}
	totalsRow := len(rows) - 1

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(th.TableBorder).
		Headers("METHOD", "TOTAL", "SUCCESS", "ERRORS", "SKIPPED", "RATE").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return th.TableHeader
			case row == totalsRow:
				return th.TableTotal
			case col == 5:
				return th.TableCell.Inherit(th.Rate(s.Rows[row].SuccessRate))
			default:
				return th.TableCell
			}
		})
	return t.String()
}
