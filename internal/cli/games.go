package cli

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"history-stairs/internal/config"
	redisstore "history-stairs/internal/infra/redis"
	"github.com/charmbracelet/bubbles/table"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewGamesCmd lists the players with a live game on any instance.
func NewGamesCmd(configPath *string) *cobra.Command {
	var noColor bool
	cmd := &cobra.Command{
		Use:   "games",
		Short: "List live games across instances (needs redis)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Redis.Addr == "" {
				return errors.New("games: redis.addr is not configured; live games are only tracked in redis")
			}
			client := redis.NewClient(&redis.Options{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			defer client.Close()

			games, err := redisstore.ListLiveGames(cmd.Context(), client)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderGames(games, noColor))
			return nil
		},
	}
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")
	return cmd
}

func renderGames(games []redisstore.LiveGame, noColor bool) string {
	if len(games) == 0 {
		return "no live games"
	}
	sort.Slice(games, func(i, j int) bool { return games[i].UserID < games[j].UserID })
	rows := make([]table.Row, 0, len(games))
	for _, g := range games {
		rows = append(rows, table.Row{g.UserID, g.Instance, g.TTL.Round(time.Second).String()})
	}
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Player", Width: 24},
			{Title: "Instance", Width: 36},
			{Title: "Expires in", Width: 10},
		}),
		table.WithRows(rows),
		table.WithHeight(len(rows)+1),
		table.WithFocused(false),
	)
	t.SetStyles(rankingStyles(noColor))
	return t.View()
}
