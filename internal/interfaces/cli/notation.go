package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/helmkit/internal/application/notation"
	"github.com/turtacn/helmkit/internal/domain/helm"
	"github.com/turtacn/helmkit/internal/interfaces/wire"
	"github.com/turtacn/helmkit/pkg/errors"
	"github.com/turtacn/helmkit/pkg/types/common"
	dto "github.com/turtacn/helmkit/pkg/types/notation"
)

// maxStdinNotation bounds notation text read from stdin.
const maxStdinNotation = 1 << 20

// Exit codes beyond the generic failure (1).
const (
	ExitInvalid = 2
	ExitFailed  = 3
)

// readNotation returns the single argument, or stdin when the argument is
// "-" or absent.
func readNotation(cmd *cobra.Command, args []string) (string, error) {
	text := ""
	if len(args) == 1 && args[0] != "-" {
		text = args[0]
	} else {
		b, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), maxStdinNotation))
		if err != nil {
			return "", errors.Wrap(err, errors.ErrCodeBadRequest, "failed to read notation from stdin")
		}
		text = string(b)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New(errors.ErrCodeBadRequest, "notation is required (argument or stdin)")
	}
	return text, nil
}

type notationFunc func(ctx context.Context, c *CLIContext, text string) error

// notationCmd builds a command taking one notation argument.
func notationCmd(use, short string, run notationFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [notation|-]",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			text, err := readNotation(cmd, args)
			if err != nil {
				return err
			}
			return run(cmd.Context(), c, text)
		},
	}
}

func newValidateCmd() *cobra.Command {
	cmd := notationCmd("validate", "Validate a notation against the monomer library", func(ctx context.Context, c *CLIContext, text string) error {
		res, err := c.Infra.Notation.Validate(ctx, text)
		if err != nil {
			return err
		}
		out := wire.ToValidateResponse(res)
		switch c.Printer.Format() {
		case FormatJSON:
			if err := c.Printer.JSON(out); err != nil {
				return err
			}
		case FormatTable:
			c.Printer.Table(violationHeaders, violationRows(out.Violations))
		default:
			printValidation(c.Printer, out)
		}
		if !out.Valid {
			return &ExitError{Code: ExitInvalid, Silent: true}
		}
		return nil
	})
	cmd.Long = "Validate checks every monomer, connection and attachment point of the\n" +
		"notation. The exit status is 0 for a valid notation and 2 for an invalid one."
	return cmd
}

var violationHeaders = []string{"RULE", "POLYMER", "POSITION", "SYMBOL", "MESSAGE"}

func violationRows(vs []common.Violation) [][]string {
	rows := make([][]string, 0, len(vs))
	for _, v := range vs {
		pos := ""
		if v.Position > 0 {
			pos = strconv.Itoa(v.Position)
		}
		rows = append(rows, []string{v.Rule, v.PolymerID, pos, v.Symbol, v.Message})
	}
	return rows
}

func printValidation(p *Printer, out *dto.ValidateResponse) {
	if out.Valid {
		p.Linef("%s (%s)", p.Good("valid"), out.Version)
		return
	}
	p.Linef("%s (%s): %d violation(s)", p.Bad("invalid"), out.Version, len(out.Violations))
	for _, v := range out.Violations {
		p.Linef("  - [%s] %s", v.Rule, v.Message)
	}
}

func newCountCmd() *cobra.Command {
	return notationCmd("count", "Count the monomers of a notation", func(ctx context.Context, c *CLIContext, text string) error {
		n, err := c.Infra.Notation.Count(ctx, text)
		if err != nil {
			return err
		}
		if c.Printer.Format() == FormatJSON {
			return c.Printer.JSON(dto.CountResponse{Count: n})
		}
		c.Printer.Linef("%d", n)
		return nil
	})
}

func newCanonicalCmd() *cobra.Command {
	var versionFlag string
	cmd := notationCmd("canonical", "Print the canonical form of a notation", func(ctx context.Context, c *CLIContext, text string) error {
		v := wire.ParseVersion(versionFlag, helm.HELM2)
		out, err := c.Infra.Notation.Canonical(ctx, text, v)
		if err != nil {
			return err
		}
		return printNotation(c.Printer, dto.NotationResponse{Notation: out, Version: string(v)})
	})
	cmd.Flags().StringVar(&versionFlag, "version", "helm2", "output grammar (helm1, helm2)")
	return cmd
}

func newConvertCmd() *cobra.Command {
	var to string
	cmd := notationCmd("convert", "Rewrite a notation in another HELM version", func(ctx context.Context, c *CLIContext, text string) error {
		v := wire.ParseVersion(to, "")
		out, err := c.Infra.Notation.Convert(ctx, text, v)
		if err != nil {
			return err
		}
		return printNotation(c.Printer, dto.NotationResponse{Notation: out, Version: string(v)})
	})
	cmd.Flags().StringVar(&to, "to", "", "target version (helm1, helm2)")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func printNotation(p *Printer, out dto.NotationResponse) error {
	if p.Format() == FormatJSON {
		return p.JSON(out)
	}
	p.Linef("%s", out.Notation)
	return nil
}

func newSMILESCmd() *cobra.Command {
	return notationCmd("smiles", "Print the canonical SMILES of the assembled molecule", func(ctx context.Context, c *CLIContext, text string) error {
		s, err := c.Infra.Notation.SMILES(ctx, text)
		if err != nil {
			return err
		}
		if c.Printer.Format() == FormatJSON {
			return c.Printer.JSON(dto.SMILESResponse{SMILES: s})
		}
		c.Printer.Linef("%s", s)
		return nil
	})
}

func newPropertiesCmd() *cobra.Command {
	return notationCmd("properties", "Print molecular formula, weight, exact mass and extinction coefficient", func(ctx context.Context, c *CLIContext, text string) error {
		p, err := c.Infra.Notation.Properties(ctx, text)
		if err != nil {
			return err
		}
		out := wire.ToProperties(p)
		if c.Printer.Format() == FormatJSON {
			return c.Printer.JSON(out)
		}
		c.Printer.Pairs(propertyPairs(out))
		return nil
	})
}

func propertyPairs(p *dto.Properties) [][2]string {
	ext := "n/a"
	if p.ExtinctionCoefficient != nil {
		ext = strconv.FormatFloat(*p.ExtinctionCoefficient, 'f', 2, 64)
	}
	return [][2]string{
		{"formula", p.MolecularFormula},
		{"molecular weight", strconv.FormatFloat(p.MolecularWeight, 'f', 4, 64)},
		{"exact mass", strconv.FormatFloat(p.ExactMass, 'f', 4, 64)},
		{"extinction coefficient", ext},
	}
}

func newSequenceCmd() *cobra.Command {
	var polymerType string
	cmd := notationCmd("sequence", "Project natural-analogue sequences of peptide and RNA polymers", func(ctx context.Context, c *CLIContext, text string) error {
		seqs, err := c.Infra.Notation.Sequences(ctx, text, notation.SequenceInput{Type: polymerType, Strict: c.strict})
		if err != nil {
			return err
		}
		out := dto.SequencesResponse{Sequences: wire.ToSequences(seqs)}
		switch c.Printer.Format() {
		case FormatJSON:
			return c.Printer.JSON(out)
		case FormatTable:
			c.Printer.Table([]string{"POLYMER", "TYPE", "SEQUENCE"}, sequenceRows(out.Sequences))
		default:
			for _, s := range out.Sequences {
				c.Printer.Linef("%s\t%s", s.PolymerID, s.Sequence)
			}
		}
		return nil
	})
	cmd.Flags().StringVar(&polymerType, "type", "", "polymer type (peptide, rna); both when empty")
	return cmd
}

func sequenceRows(seqs []dto.PolymerSequence) [][]string {
	rows := make([][]string, 0, len(seqs))
	for _, s := range seqs {
		rows = append(rows, []string{s.PolymerID, s.Type, s.Sequence})
	}
	return rows
}

func newAnalyzeCmd() *cobra.Command {
	var (
		name        string
		seqType     string
		noCache     bool
		archive     bool
		failOnError bool
	)
	cmd := notationCmd("analyze", "Run every operation on a notation and print the report", func(ctx context.Context, c *CLIContext, text string) error {
		r, err := c.Infra.Notation.Analyze(ctx, text, notation.AnalyzeOptions{
			Name:         name,
			SequenceType: seqType,
			Strict:       c.strict,
			NoCache:      noCache,
			Archive:      archive,
		})
		if err != nil {
			return err
		}
		out := wire.ToReport(r)
		if c.Printer.Format() == FormatJSON {
			if err := c.Printer.JSON(out); err != nil {
				return err
			}
		} else {
			printReport(c.Printer, out)
		}
		if failOnError && len(out.Errors) > 0 {
			return &ExitError{Code: ExitFailed, Silent: true}
		}
		return nil
	})
	f := cmd.Flags()
	f.StringVar(&name, "name", "", "label stored in the report")
	f.StringVar(&seqType, "type", "", "restrict sequences to one polymer type")
	f.BoolVar(&noCache, "no-cache", false, "bypass the report cache")
	f.BoolVar(&archive, "archive", false, "store the report in object storage")
	f.BoolVar(&failOnError, "fail-on-error", false, "exit with status 3 when any operation failed")
	return cmd
}

func newDemoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Analyse the bundled sample notations",
		Long: "Demo runs the full analysis on a cyclic peptide, a HELM2 peptide, a\n" +
			"peptide conjugate, an RNA conjugate with an inline linker and a notation\n" +
			"with an unknown monomer. A failing operation is reported and the run goes on.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			reports, err := c.Infra.Notation.Demo(cmd.Context())
			if err != nil {
				return err
			}
			out := make([]*dto.AnalysisReport, len(reports))
			for i, r := range reports {
				out[i] = wire.ToReport(r)
			}
			switch c.Printer.Format() {
			case FormatJSON:
				return c.Printer.JSON(out)
			case FormatTable:
				c.Printer.Table([]string{"SAMPLE", "VALID", "MONOMERS", "FORMULA", "FAILED"}, demoRows(out))
			default:
				for i, r := range out {
					if i > 0 {
						c.Printer.Linef("")
					}
					c.Printer.Linef("== %s ==", r.Name)
					printReport(c.Printer, r)
				}
			}
			return nil
		},
	}
}

func demoRows(reports []*dto.AnalysisReport) [][]string {
	rows := make([][]string, 0, len(reports))
	for _, r := range reports {
		formula := ""
		if r.Properties != nil {
			formula = r.Properties.MolecularFormula
		}
		rows = append(rows, []string{r.Name, strconv.FormatBool(r.Valid), strconv.Itoa(r.MonomerCount), formula, strings.Join(failedOps(r), ",")})
	}
	return rows
}

func failedOps(r *dto.AnalysisReport) []string {
	ops := make([]string, 0, len(r.Errors))
	for op := range r.Errors {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	return ops
}

func printReport(p *Printer, r *dto.AnalysisReport) {
	valid := p.Good("yes")
	if !r.Valid {
		valid = p.Bad("no")
	}
	pairs := [][2]string{
		{"input", r.Input},
		{"version", r.Version},
		{"valid", valid},
		{"monomers", strconv.Itoa(r.MonomerCount)},
	}
	add := func(k, v string) {
		if v != "" {
			pairs = append(pairs, [2]string{k, v})
		}
	}
	add("canonical", r.CanonicalHELM)
	add("canonical helm2", r.CanonicalHELM2)
	add("smiles", r.CanonicalSMILES)
	if r.Properties != nil {
		pairs = append(pairs, propertyPairs(r.Properties)...)
	}
	for _, s := range r.Sequences {
		pairs = append(pairs, [2]string{"sequence " + s.PolymerID, s.Sequence})
	}
	if r.Topology != nil {
		pairs = append(pairs, [2]string{"topology", fmt.Sprintf("%d component(s), cyclic=%t, duplex=%t",
			len(r.Topology.Components), r.Topology.Cyclic, r.Topology.Duplex)})
	}
	add("archive", r.ArchiveKey)
	for _, op := range failedOps(r) {
		e := r.Errors[op]
		pairs = append(pairs, [2]string{"error " + op, p.Warn(e.Error())})
	}
	p.Pairs(pairs)
}
