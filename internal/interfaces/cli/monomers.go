package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/helmkit/internal/interfaces/wire"
	"github.com/turtacn/helmkit/pkg/errors"
	"github.com/turtacn/helmkit/pkg/types/common"
	dto "github.com/turtacn/helmkit/pkg/types/notation"
)

func newMonomersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "monomers",
		Aliases: []string{"monomer"},
		Short:   "Inspect and maintain the monomer library",
	}
	cmd.AddCommand(
		newMonomersListCmd(),
		newMonomersShowCmd(),
		newMonomersImportCmd(),
		newMonomersExportCmd(),
		newMonomersPublishCmd(),
	)
	return cmd
}

func newMonomersListCmd() *cobra.Command {
	var polymerType string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List monomers of the effective library",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ms, err := c.Infra.Catalog.List(cmd.Context(), polymerType)
			if err != nil {
				return err
			}
			out := common.NewListResponse(wire.ToMonomers(ms))
			switch c.Printer.Format() {
			case FormatJSON:
				return c.Printer.JSON(out)
			case FormatTable:
				c.Printer.Table([]string{"TYPE", "SYMBOL", "KIND", "NAME", "ANALOG", "ATTACHMENTS"}, monomerRows(out.Items))
			default:
				for _, m := range out.Items {
					c.Printer.Linef("%-8s %-8s %s", m.PolymerType, m.Symbol, m.Name)
				}
				c.Printer.Linef("%d monomer(s)", out.Total)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&polymerType, "type", "", "polymer type (peptide, rna, chem); all when empty")
	return cmd
}

func monomerRows(ms []dto.Monomer) [][]string {
	rows := make([][]string, 0, len(ms))
	for _, m := range ms {
		rows = append(rows, []string{m.PolymerType, m.Symbol, m.Kind, m.Name, m.NaturalAnalog, attachmentList(m.Attachments)})
	}
	return rows
}

func attachmentList(as []dto.Attachment) string {
	parts := make([]string, len(as))
	for i, a := range as {
		parts[i] = a.Label + "=" + a.Cap
	}
	return strings.Join(parts, " ")
}

func newMonomersShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <type> <symbol>",
		Short: "Show one monomer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			m, err := c.Infra.Catalog.Show(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			out := wire.ToMonomer(m)
			if c.Printer.Format() == FormatJSON {
				return c.Printer.JSON(out)
			}
			c.Printer.Pairs([][2]string{
				{"symbol", out.Symbol},
				{"type", out.PolymerType},
				{"kind", out.Kind},
				{"name", out.Name},
				{"smiles", out.SMILES},
				{"natural analog", out.NaturalAnalog},
				{"attachments", attachmentList(out.Attachments)},
			})
			return nil
		},
	}
}

func newMonomersImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file|->",
		Short: "Import a YAML monomer library into the writable store",
		Long: "Import decodes a YAML monomer library and saves it to the last\n" +
			"repository source configured in monomers.sources (postgres or sqlite).",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return errors.Wrap(err, errors.ErrCodeBadRequest, "failed to open monomer library")
				}
				defer f.Close()
				r = f
			}
			res, err := c.Infra.Catalog.Import(cmd.Context(), r)
			if err != nil {
				return err
			}
			if c.Printer.Format() == FormatJSON {
				return c.Printer.JSON(res)
			}
			types := make([]string, 0, len(res.ByType))
			for t := range res.ByType {
				types = append(types, t)
			}
			sort.Strings(types)
			pairs := [][2]string{{"store", res.Store}, {"imported", strconv.Itoa(res.Imported)}}
			for _, t := range types {
				pairs = append(pairs, [2]string{strings.ToLower(t), strconv.Itoa(res.ByType[t])})
			}
			c.Printer.Pairs(pairs)
			return nil
		},
	}
}

func newMonomersExportCmd() *cobra.Command {
	var (
		polymerType string
		file        string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the effective library as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if file != "" {
				f, err := os.Create(file)
				if err != nil {
					return errors.Wrap(err, errors.ErrCodeBadRequest, "failed to create export file")
				}
				defer f.Close()
				w = f
			}
			n, err := c.Infra.Catalog.Export(cmd.Context(), w, polymerType)
			if err != nil {
				return err
			}
			if file != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "exported %d monomer(s) to %s\n", n, file)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&polymerType, "type", "", "polymer type; all when empty")
	cmd.Flags().StringVarP(&file, "file", "f", "", "write to file instead of stdout")
	return cmd
}

func newMonomersPublishCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "publish",
		Short: "Upload the effective library to object storage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			key, err := c.Infra.Catalog.Publish(cmd.Context())
			if err != nil {
				return err
			}
			c.Printer.Linef("published %s", key)
			return nil
		},
	}
}
