// Sessions command lists indexed traces.
package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List traces in the SQLite trace index",
	Args:  cobra.NoArgs,
	RunE:  runSessions,
}

func runSessions(cmd *cobra.Command, args []string) error {
	store, err := attachStore()
	if err != nil {
		return err
	}
	defer store.Close()

	sessions, err := store.Sessions()
	if err != nil {
		return err
	}

	if flagJSON {
		data, err := json.MarshalIndent(sessions, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	if len(sessions) == 0 {
		fmt.Println("no indexed traces")
		return nil
	}
	for _, s := range sessions {
		fmt.Printf("%s  %-24s %6d steps  %s\n",
			s.ID, s.Name, s.StepCount, s.CreatedAt.Format(time.RFC3339))
	}
	return nil
}
