package main

import (
	"encoding/hex"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/danmuck/stmmctl/internal/protocol"
	"github.com/danmuck/stmmctl/internal/protocol/session"
	"github.com/spf13/cobra"
)

func newCallCmd(opts *rootOptions) *cobra.Command {
	var size int
	cmd := &cobra.Command{
		Use:   "call FUNCTION [HEX-BODY]",
		Short: "Send one raw variable-service frame and print the reply",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fn, err := protocol.ParseFunction(args[0])
			if err != nil {
				return err
			}
			var body []byte
			if len(args) == 2 {
				body, err = hex.DecodeString(strings.TrimPrefix(args[1], "0x"))
				if err != nil {
					return fmt.Errorf("%w: body: %v", protocol.ErrParam, err)
				}
			}
			if size > len(body) {
				body = append(body, make([]byte, size-len(body))...)
			}

			cfg := opts.cfg
			s := newSession(cfg)
			rng := rand.New(rand.NewSource(time.Now().UnixNano()))
			if err := session.OpenWithRetry(cmd.Context(), s, cfg.Retry, rng); err != nil {
				return err
			}
			defer s.Close()

			resp, err := s.Communicate(cmd.Context(), fn, body)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "function: %s\n", resp.Function)
			fmt.Fprintf(out, "status:   %s\n", resp.Status)
			fmt.Fprintf(out, "body:     %s\n", hex.EncodeToString(resp.Body))
			return resp.Err()
		},
	}
	cmd.Flags().IntVar(&size, "size", 0, "zero-pad the body to this many bytes")
	return cmd
}
