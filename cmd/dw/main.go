// Copyright (C) 2025 Driftwood AI (oss@driftwood.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command dw is the Driftwood command-line client.
//
// It talks to a running driftwood server over HTTP:
//
//	dw query "show sales_data.csv"
//	dw exec read_csv --param filename=sales_data.csv
//	dw tools
//	dw files
//	dw upload ./sales_data.csv
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// serverURL holds the --server flag value shared by every subcommand.
var serverURL string

// execParams holds repeated --param key=value pairs for the exec command.
var execParams []string

func main() {
	rootCmd := &cobra.Command{
		Use:   "dw",
		Short: "Client for the Driftwood query server",
		Long: "dw sends natural-language queries and direct tool invocations\n" +
			"to a running driftwood server.",
	}
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "Driftwood server URL (default http://localhost:8080, or DRIFTWOOD_SERVER_URL)")

	queryCmd := &cobra.Command{
		Use:   "query [text]",
		Short: "Resolve a natural-language query to a tool invocation",
		Args:  cobra.MinimumNArgs(1),
		Run:   runQueryCommand,
	}

	execCmd := &cobra.Command{
		Use:   "exec [tool]",
		Short: "Invoke a catalog tool directly, bypassing routing",
		Args:  cobra.ExactArgs(1),
		Run:   runExecCommand,
	}
	execCmd.Flags().StringArrayVar(&execParams, "param", nil, "Tool parameter as key=value (repeatable)")

	toolsCmd := &cobra.Command{
		Use:   "tools",
		Short: "List the tool catalog",
		Run:   runToolsCommand,
	}

	filesCmd := &cobra.Command{
		Use:   "files",
		Short: "List CSV files available on the server",
		Run:   runFilesCommand,
	}

	uploadCmd := &cobra.Command{
		Use:   "upload [path]",
		Short: "Upload a CSV file to the server's data directory",
		Args:  cobra.ExactArgs(1),
		Run:   runUploadCommand,
	}

	downloadCmd := &cobra.Command{
		Use:   "download [name]",
		Short: "Download a data file or generated chart from the server",
		Args:  cobra.ExactArgs(1),
		Run:   runDownloadCommand,
	}

	rootCmd.AddCommand(queryCmd, execCmd, toolsCmd, filesCmd, uploadCmd, downloadCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// getServerBaseURL resolves the server address from the --server flag,
// then DRIFTWOOD_SERVER_URL, then the default local address.
func getServerBaseURL() string {
	if serverURL != "" {
		return serverURL
	}
	if env := os.Getenv("DRIFTWOOD_SERVER_URL"); env != "" {
		return env
	}
	return "http://localhost:8080"
}
