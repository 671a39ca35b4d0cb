package main

import (
	"os"

	errors "github.com/Laisky/errors/v2"
	"github.com/spf13/cobra"

	twitter "github.com/anatolykoptev/go-twitter-proxy"
)

var cookiesCmd = &cobra.Command{
	Use:   "cookies",
	Short: "Cookie file utilities",
}

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Rewrite an exported cookie jar as a flat name/value JSON object",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		in, _ := cmd.Flags().GetString("input")
		out, _ := cmd.Flags().GetString("output")
		return convertCookies(cmd, in, out)
	},
}

func init() {
	convertCmd.Flags().StringP("input", "i", "", "cookie jar exported from a browser")
	convertCmd.Flags().StringP("output", "o", "", "destination file (stdout when empty)")
	_ = convertCmd.MarkFlagRequired("input")
	cookiesCmd.AddCommand(convertCmd)
}

func convertCookies(cmd *cobra.Command, in, out string) error {
	data, err := os.ReadFile(in)
	if err != nil {
		return errors.Wrapf(err, "read %s", in)
	}
	flat, err := twitter.ConvertCookies(data)
	if err != nil {
		return errors.Wrapf(err, "convert %s", in)
	}
	flat = append(flat, '\n')

	if out == "" {
		_, err = cmd.OutOrStdout().Write(flat)
		return err
	}
	if err := os.WriteFile(out, flat, 0o600); err != nil {
		return errors.Wrapf(err, "write %s", out)
	}
	cmd.PrintErrf("wrote %s\n", out)
	return nil
}
