package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/pranayab18/Data-Extraction/internal/common"
)

func (a *app) healthCommand() *cobra.Command {
	var (
		addr    string
		service string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Probe a running extractor daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = a.cfg.Server.GRPCAddr
			}
			if strings.HasPrefix(addr, ":") {
				addr = "localhost" + addr
			}
			conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
			if err != nil {
				return common.NewAppError("HEALTH_DIAL", addr, err)
			}
			defer conn.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: service})
			if err != nil {
				return common.NewAppError("HEALTH_CHECK", addr, err)
			}
			b, err := protojson.MarshalOptions{Multiline: true, EmitUnpopulated: true}.Marshal(resp)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(b))
			if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
				return common.NewAppError("NOT_SERVING", service, common.ErrInternal)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&addr, "addr", "", "daemon address (default GRPC_ADDR)")
	f.StringVar(&service, "service", "", `service to check: "", pipeline or ledger`)
	f.DurationVar(&timeout, "timeout", 3*time.Second, "probe timeout")
	return cmd
}
