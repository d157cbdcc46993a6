package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-leadform/pkg/persist"
	"github.com/goliatone/go-leadform/pkg/session"
	"github.com/goliatone/go-leadform/pkg/submission"
	"github.com/goliatone/go-leadform/pkg/tui"
)

func fillCmd(a *app) *cobra.Command {
	var params session.StartParams
	cmd := &cobra.Command{
		Use:   "fill",
		Short: "Fill and submit the form in the terminal",
		Long: `fill walks the form step by step. Progress is saved to the configured
store, so an interrupted run resumes where it stopped.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return fill(cmd.Context(), a, params)
		},
	}
	cmd.Flags().StringVar(&params.Sheet, session.ParamSheet, "", "destination sheet")
	cmd.Flags().StringVar(&params.Source, session.ParamSource, "", "lead source")
	cmd.Flags().StringVar(&params.Campaign, session.ParamCampaign, "", "campaign name")
	return cmd
}

func fill(ctx context.Context, a *app, params session.StartParams) error {
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
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	s := session.New(def,
		session.WithStore(store, persist.DefaultKey),
		session.WithLocalities(places),
		session.WithDebounce(a.cfg.Sessions.Debounce),
		session.WithLogger(a.log),
		session.WithParams(params),
	)
	if err := s.Restore(ctx); err != nil {
		return err
	}
	if s.Recovered() {
		fmt.Println("Retomamos tu cotización donde la dejaste.")
	}

	runner := tui.New(tui.WithSuggester(places))
	if err := runner.Fill(ctx, s); err != nil {
		if errors.Is(err, tui.ErrAborted) {
			s.FlushProgress()
			return nil
		}
		return err
	}

	ctrl := submission.NewController(a.dispatcher(), links, submission.WithLogger(a.log))
	out, err := runner.Submit(ctx, s, ctrl)
	if err != nil {
		if errors.Is(err, tui.ErrAborted) {
			s.FlushProgress()
			return nil
		}
		return err
	}
	if out.Success {
		fmt.Println("¡Gracias! Un ejecutivo te contactará pronto.")
	}
	return nil
}
