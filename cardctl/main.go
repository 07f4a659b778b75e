// Command cardctl works with board definitions kept as YAML files: it
// compiles their areas, hit-tests cells and resizes grids.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"cardmass/domain"
	"cardmass/grid"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "cardctl",
		Short:         "Inspect and edit board definitions",
		SilenceUsage:  true,
	}
	cmd.AddCommand(newCompileCmd())
	cmd.AddCommand(newHitCmd())
	cmd.AddCommand(newResizeCmd())
	return cmd
}

func newCompileCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "compile <board.yaml>",
		Short: "Print the compiled areas of a board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := loadBoard(args[0])
			if err != nil {
				return err
			}
			boxes := grid.CompileBoard(b)
			switch format {
			case "json":
				out, err := sonic.ConfigStd.MarshalIndent(boxes, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
			case "table":
				for _, bx := range boxes {
					fmt.Fprintf(cmd.OutOrStdout(), "%-20s rows %d-%d cols %d-%d %s\n", bx.Name, bx.MinRow, bx.MaxRow, bx.MinCol, bx.MaxCol, bx.Color)
				}
			default:
				return fmt.Errorf("unknown format %q", format)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format: table or json")
	return cmd
}

func newHitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hit <board.yaml> <row> <col>",
		Short: "Print the area owning a cell",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := loadBoard(args[0])
			if err != nil {
				return err
			}
			row, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid row: %w", err)
			}
			col, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid col: %w", err)
			}
			bx, ok := grid.HitTest(grid.CompileBoard(b), row, col)
			if !ok {
				return fmt.Errorf("no area at %d,%d", row, col)
			}
			fmt.Fprintln(cmd.OutOrStdout(), bx.Name)
			return nil
		},
	}
}

func newResizeCmd() *cobra.Command {
	var (
		rows, cols int
		output     string
	)
	cmd := &cobra.Command{
		Use:   "resize <board.yaml>",
		Short: "Resize a board, dropping tiles outside the new grid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := loadBoard(args[0])
			if err != nil {
				return err
			}
			b = grid.Clip(b, rows, cols)
			if err := b.Validate(); err != nil {
				return err
			}
			out, err := yaml.Marshal(b)
			if err != nil {
				return err
			}
			if output == "" {
				_, err = cmd.OutOrStdout().Write(out)
				return err
			}
			return os.WriteFile(output, out, 0o644)
		},
	}
	cmd.Flags().IntVar(&rows, "rows", 0, "new row count")
	cmd.Flags().IntVar(&cols, "cols", 0, "new column count")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the resized board to this file instead of stdout")
	_ = cmd.MarkFlagRequired("rows")
	_ = cmd.MarkFlagRequired("cols")
	return cmd
}

// loadBoard reads and validates a YAML board definition.
func loadBoard(path string) (domain.Board, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Board{}, err
	}
	var b domain.Board
	if err := yaml.Unmarshal(data, &b); err != nil {
		return domain.Board{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := b.Validate(); err != nil {
		return domain.Board{}, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(newRootCmd()))
}
