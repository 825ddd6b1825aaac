package main

import (
	"github.com/spf13/cobra"

	"stream-operators/src/operators"
)

var readAdhocCmd = &cobra.Command{
	Use:   "read-adhoc <symbol>",
	Short: "Print the current price of a symbol once",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), nil, args)
		if err != nil {
			return err
		}
		defer a.Close()

		_, err = operators.ReadAdhoc(cmd.Context(), a.Runtime.Subscriber, args[0], cmd.OutOrStdout())
		return err
	},
}

var readStreamingCmd = &cobra.Command{
	Use:   "read-streaming <symbol>",
	Short: "Print every price update of a symbol until interrupted",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), nil, args)
		if err != nil {
			return err
		}
		defer a.Close()

		return operators.ReadStreaming(cmd.Context(), a.Runtime.Subscriber, args[0], cmd.OutOrStdout())
	},
}
