package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ghalamif/ProbeFlow"
)

func chartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Render a probe's temperature series to PNG",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, cfg, err := loadHistory(cmd)
			if err != nil {
				return err
			}
			serial, err := serialFlag(cmd, reg)
			if err != nil {
				return err
			}
			unit := cfg.Export.Unit
			if u, _ := cmd.Flags().GetString("unit"); u != "" {
				if err := unit.UnmarshalText([]byte(u)); err != nil {
					return err
				}
			}
			width, _ := cmd.Flags().GetInt("width")
			height, _ := cmd.Flags().GetInt("height")
			out, _ := cmd.Flags().GetString("out")
			if out == "" {
				out = fmt.Sprintf("probe-%04X.png", serial)
			}

			var buf bytes.Buffer
			if err := probeflow.RenderChart(&buf, reg, serial, unit, probeflow.ChartOptions{Width: width, Height: height}); err != nil {
				return err
			}
			if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
				return err
			}
			fmt.Println(out)
			return nil
		},
	}

	addHistoryFlags(cmd)
	cmd.Flags().StringP("serial", "s", "", "Probe serial number (hex)")
	cmd.Flags().StringP("unit", "u", "", "Temperature unit (C or F), defaults to export.unit")
	cmd.Flags().StringP("out", "o", "", "Output PNG path")
	cmd.Flags().Int("width", 1024, "Image width in pixels")
	cmd.Flags().Int("height", 512, "Image height in pixels")

	return cmd
}
