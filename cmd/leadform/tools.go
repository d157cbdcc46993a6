package main

import (
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-leadform/internal/mcptools"
	"github.com/goliatone/go-leadform/pkg/rut"
)

func mcpCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the form helpers as MCP tools over stdio",
		RunE: func(_ *cobra.Command, _ []string) error {
			def, err := a.definition()
			if err != nil {
				return err
			}
			places, err := a.localities()
			if err != nil {
				return err
			}
			links, err := a.links()
			if err != nil {
				return err
			}
			srv, err := mcptools.NewServer(version, mcptools.Deps{Definition: def, Localities: places, Links: links})
			if err != nil {
				return err
			}
			a.log.Info("mcp server on stdio")
			return server.ServeStdio(srv)
		},
	}
}

func rutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rut <rut>...",
		Short: "Validate and format RUTs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			invalid := 0
			for _, raw := range args {
				status := "válido"
				if !rut.Valid(rut.Format(raw)) {
					status = "inválido"
					invalid++
				}
				fmt.Fprintf(out, "%s\t%s\n", rut.Format(raw), status)
			}
			if invalid > 0 {
				return fmt.Errorf("%d invalid RUT(s)", invalid)
			}
			return nil
		},
	}
}

func localitiesCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "localities <name>",
		Short: "Suggest communes and resolve a typed name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := a.localities()
			if err != nil {
				return err
			}
			query := strings.Join(args, " ")
			out := cmd.OutOrStdout()
			for _, e := range idx.Suggestions(query, limit) {
				fmt.Fprintf(out, "%s\t%s\n", e.Name, e.Region)
			}
			c := idx.Autocorrect(query)
			switch {
			case c.Corrected:
				fmt.Fprintf(out, "→ %s (%s)\n", c.Value, c.Region)
			case !c.Valid:
				fmt.Fprintf(out, "sin coincidencias para %q\n", query)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum suggestions")
	return cmd
}
