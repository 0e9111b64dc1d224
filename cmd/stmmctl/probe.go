package main

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/danmuck/stmmctl/internal/observability"
	"github.com/danmuck/stmmctl/internal/protocol/session"
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newProbeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Open a session, negotiate the payload size and report the limits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			s := newSession(cfg)
			rng := rand.New(rand.NewSource(time.Now().UnixNano()))
			if err := session.OpenWithRetry(cmd.Context(), s, cfg.Retry, rng); err != nil {
				return err
			}
			defer s.Close()

			limits := s.Limits()
			neg := s.Negotiation()
			observability.RecordNegotiatedPayload(cfg.Transport, limits.MaxPayloadSize)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "transport:        %s\n", cfg.Transport)
			fmt.Fprintf(out, "word size:        %d\n", s.Layout().WordSize)
			fmt.Fprintf(out, "negotiate status: %s\n", neg.Status)
			fmt.Fprintf(out, "reported size:    %d\n", neg.PayloadSize)
			fmt.Fprintf(out, "max payload:      %d (%s)\n", limits.MaxPayloadSize, humanize.IBytes(uint64(limits.MaxPayloadSize)))
			fmt.Fprintf(out, "max buffer:       %d (%s)\n", limits.MaxBufferSize, humanize.IBytes(uint64(limits.MaxBufferSize)))

			if cfg.MetricsTextfile != "" {
				if err := observability.WriteTextfile(cfg.MetricsTextfile); err != nil {
					log.Warn().Err(err).Str("component", "cli").Str("path", cfg.MetricsTextfile).Msg("metrics textfile write failed")
				}
			}
			return nil
		},
	}
}
