package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func summaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "List known probes with state, record range and current temperatures",
		Long: `Rebuild probe history offline and print one row per probe:
- serial number and connection state
- record range (min - max sequence) and logged record count
- current temperatures from the latest sample`,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, cfg, err := loadHistory(cmd)
			if err != nil {
				return err
			}
			asJSON, _ := cmd.Flags().GetBool("json")
			unitFlag, _ := cmd.Flags().GetString("unit")
			unit := cfg.Export.Unit
			if unitFlag != "" {
				if err := unit.UnmarshalText([]byte(unitFlag)); err != nil {
					return err
				}
			}

			probes := reg.Probes()
			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(probes)
			}
			if len(probes) == 0 {
				fmt.Println("No probes")
				return nil
			}

			fmt.Printf("%-6s %-13s %-15s %8s  %s\n", "S/N", "State", "Records", "Count", "Current")
			for _, p := range probes {
				fmt.Printf("%-6s %-13s %-15s %8d  %s\n",
					p.Serial, p.State, p.RangeText(), p.RecordCount, p.CurrentText(unit))
			}
			return nil
		},
	}

	addHistoryFlags(cmd)
	cmd.Flags().BoolP("json", "j", false, "Output as JSON")
	cmd.Flags().StringP("unit", "u", "", "Temperature unit (C or F), defaults to export.unit")

	return cmd
}
