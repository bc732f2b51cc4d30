package cli

import (
	"fmt"
	"strconv"

	"history-stairs/internal/app"
	"history-stairs/internal/config"
	"history-stairs/internal/domain"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

// NewRankingCmd prints the leaderboard as a table.
func NewRankingCmd(configPath *string) *cobra.Command {
	var (
		limit   int
		noColor bool
	)
	cmd := &cobra.Command{
		Use:   "ranking",
		Short: "Print the top players",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			svc, err := buildServices(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer svc.Close()

			entries := svc.accounts.Rankings(cmd.Context(), limit)
			fmt.Fprintln(cmd.OutOrStdout(), renderRanking(entries, noColor))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, fmt.Sprintf("number of players to show (max %d)", app.MaxRankingLimit))
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")
	return cmd
}

func rankingColumns() []table.Column {
	return []table.Column{
		{Title: "#", Width: 4},
		{Title: "Player", Width: 24},
		{Title: "Stairs", Width: 8},
	}
}

func rankingRows(entries []domain.RankingEntry) []table.Row {
	rows := make([]table.Row, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, table.Row{
			strconv.Itoa(e.Rank),
			e.DisplayName,
			strconv.Itoa(e.HighScore),
		})
	}
	return rows
}

func rankingStyles(noColor bool) table.Styles {
	styles := table.DefaultStyles()
	// nothing is selectable in a printed table
	styles.Selected = lipgloss.NewStyle()
	if noColor {
		return styles
	}
	styles.Header = styles.Header.Foreground(lipgloss.Color("252"))
	return styles
}

func renderRanking(entries []domain.RankingEntry, noColor bool) string {
	if len(entries) == 0 {
		return "no ranked players yet"
	}
	t := table.New(
		table.WithColumns(rankingColumns()),
		table.WithRows(rankingRows(entries)),
		table.WithHeight(len(entries)+1),
		table.WithFocused(false),
	)
	t.SetStyles(rankingStyles(noColor))
	return t.View()
}
