package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"ragqa/internal/domain"
)

func queryCmd(flags *globalFlags) *cobra.Command {
	var (
		topK   int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "query <question...>",
		Short: "Answer a single question and exit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			a, err := newApp(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			res, err := a.pipeline.QueryTopK(cmd.Context(), strings.Join(args, " "), topK)
			if err != nil {
				return errors.New(domain.UserMessage(err))
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			printResult(cmd.OutOrStdout(), res)
			return nil
		},
	}
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "number of passages to retrieve (default retrieval.top_k)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}

func printResult(w io.Writer, res domain.Result) {
	fmt.Fprintln(w, res.Answer)
	if len(res.RetrievedDocs) == 0 {
		return
	}
	fmt.Fprintln(w)
	for i, d := range res.RetrievedDocs {
		fmt.Fprintf(w, "[Reference %d] similarity %.2f%%, distance %.4f\n%s\n\n", i+1, d.Similarity*100, d.Distance, d.Content)
	}
}
