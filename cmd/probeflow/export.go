package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ghalamif/ProbeFlow"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a probe's history as a CSV export",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, cfg, err := loadHistory(cmd)
			if err != nil {
				return err
			}
			serial, err := serialFlag(cmd, reg)
			if err != nil {
				return err
			}
			modeFlag, _ := cmd.Flags().GetString("mode")
			mode, err := probeflow.ParseExportMode(modeFlag)
			if err != nil {
				return err
			}
			session, _ := cmd.Flags().GetUint32("session")
			if mode == probeflow.Simple && !cmd.Flags().Changed("session") {
				return fmt.Errorf("--session is required for simple exports")
			}
			dir, _ := cmd.Flags().GetString("out")
			if dir == "" {
				dir = cfg.Export.Dir
			}

			art, err := probeflow.ExportProbe(reg, serial, probeflow.ExportOptions{
				Mode:       mode,
				SessionID:  session,
				Dir:        dir,
				AppVersion: valueOrDefault(cfg.Export.AppVersion, Version),
			})
			if err != nil {
				return err
			}
			fmt.Printf("export %s: %d rows, %d bytes\n%s\n", art.ID, art.Rows, art.Bytes, art.Path)
			return nil
		},
	}

	addHistoryFlags(cmd)
	cmd.Flags().StringP("serial", "s", "", "Probe serial number (hex)")
	cmd.Flags().StringP("mode", "m", "combined", "Export mode (combined, simple)")
	cmd.Flags().Uint32("session", 0, "Session ID for simple exports")
	cmd.Flags().StringP("out", "o", "", "Output directory, defaults to export.dir")

	return cmd
}
