// Package cli wires the training engine to a cobra/pflag command surface:
// a root command plus train and dump subcommands, with one flag per
// Config field, defaulted from config.Default().
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/StatsDLMathsRecomSys/Knowledge-aware-complementary-product-representation-learning/internal/config"
	"github.com/StatsDLMathsRecomSys/Knowledge-aware-complementary-product-representation-learning/internal/engine"
	"github.com/StatsDLMathsRecomSys/Knowledge-aware-complementary-product-representation-learning/internal/logging"
	"github.com/StatsDLMathsRecomSys/Knowledge-aware-complementary-product-representation-learning/internal/store"
)

// NewRoot builds the root command with its train and dump subcommands.
func NewRoot() *cobra.Command {
	root := &cobra.Command{
		Use:   "univec",
		Short: "Train and inspect multi-task skip-gram embeddings",
	}
	root.AddCommand(newTrainCmd())
	root.AddCommand(newDumpCmd())
	return root
}

func newTrainCmd() *cobra.Command {
	cfg := config.Default()

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train embeddings from transaction, view, subscription and search logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrain(cmd.Context(), cfg)
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.ItemWordInput, "itemWordInput", cfg.ItemWordInput, "path to the item -> word context file")
	f.StringVar(&cfg.UserWordInput, "userWordInput", cfg.UserWordInput, "path to the user -> word context file")
	f.StringVar(&cfg.TrxInput, "trxInput", cfg.TrxInput, "path to the ordered transaction basket file")
	f.StringVar(&cfg.ViewInput, "viewInput", cfg.ViewInput, "path to the ordered view basket file")
	f.StringVar(&cfg.SubInput, "subInput", cfg.SubInput, "path to the subscription tsv file")
	f.StringVar(&cfg.SearchInput, "searchInput", cfg.SearchInput, "path to the search tsv file")
	f.StringVar(&cfg.Output, "output", cfg.Output, "output path prefix (required)")

	f.IntVar(&cfg.Dim, "dim", cfg.Dim, "item embedding dimension")
	f.IntVar(&cfg.UserDim, "userDim", cfg.UserDim, "user embedding dimension")
	f.IntVar(&cfg.WindowSize, "ws", cfg.WindowSize, "basket window size")
	f.IntVar(&cfg.Neg, "neg", cfg.Neg, "negative samples per positive example")
	f.IntVar(&cfg.Epoch, "epoch", cfg.Epoch, "number of passes over the primary source")
	f.Float64Var(&cfg.LR, "lr", cfg.LR, "initial learning rate")
	f.IntVar(&cfg.LRUpdateRate, "lrUpdateRate", cfg.LRUpdateRate, "local observations between shared token-count flushes")
	f.IntVar(&cfg.Thread, "thread", cfg.Thread, "number of worker threads")
	f.Int64Var(&cfg.Seed, "seed", cfg.Seed, "initialization seed")
	f.StringVar((*string)(&cfg.Combine), "combine", string(cfg.Combine), "user-item combine method: concat|mean|meanSum")
	f.StringVar((*string)(&cfg.Loss), "loss", string(cfg.Loss), "output loss: ns|hs|softmax|ova")

	f.BoolVar(&cfg.SkipUserContext, "skipUserContext", cfg.SkipUserContext, "disable the user-word context task")
	f.BoolVar(&cfg.SkipTrxData, "skipTrxData", cfg.SkipTrxData, "disable the transaction task")
	f.BoolVar(&cfg.SkipViewData, "skipViewData", cfg.SkipViewData, "disable the view task")
	f.BoolVar(&cfg.SkipSubData, "skipSubData", cfg.SkipSubData, "disable the subscription task")
	f.BoolVar(&cfg.SkipSearchData, "skipSearchData", cfg.SkipSearchData, "disable the search task")
	f.BoolVar(&cfg.SkipContext, "skipContext", cfg.SkipContext, "disable item-word context regularization")
	f.BoolVar(&cfg.ShuffleContext, "shuffleContext", cfg.ShuffleContext, "shuffle basket context order before windowing")
	f.BoolVar(&cfg.CheckItemWordGap, "checkItemWordGap", cfg.CheckItemWordGap, "require a gap-free item index in itemWordInput")
	f.IntVar(&cfg.Verbose, "verbose", cfg.Verbose, "log verbosity (0=silent, 1=warnings, 2=progress)")

	return cmd
}

func runTrain(ctx context.Context, cfg config.Config) error {
	logs := logging.Default(cfg.Verbose)

	e, err := engine.Open(cfg, logs)
	if err != nil {
		return err
	}

	out, err := os.Create(cfg.Output + ".bin")
	if err != nil {
		return fmt.Errorf("output %q is not writable: %w", cfg.Output, err)
	}
	out.Close()

	if err := e.Train(ctx); err != nil {
		return err
	}

	bin, err := os.Create(cfg.Output + ".bin")
	if err != nil {
		return err
	}
	defer bin.Close()
	if err := e.SaveModel(bin); err != nil {
		return err
	}

	return e.ExportVectors(cfg.Output)
}

func newDumpCmd() *cobra.Command {
	var option string

	cmd := &cobra.Command{
		Use:   "dump <model.bin> [user_input|item_input|word_output|item_output]",
		Short: "Print a component of a saved model as text",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			what := option
			if len(args) == 2 {
				what = args[1]
			}
			return runDump(args[0], what)
		},
	}
	cmd.Flags().StringVar(&option, "what", "itemInput", "which component to dump: userInput|itemInput|wordOutput|itemOutput")
	return cmd
}

func runDump(modelPath, what string) error {
	f, err := os.Open(modelPath)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := store.CheckHeader(f); err != nil {
		return err
	}
	s, err := store.LoadMatrices(f)
	if err != nil {
		return err
	}

	switch what {
	case "userInput", "user_input":
		return s.UI.Dump(os.Stdout)
	case "itemInput", "item_input":
		return s.II.Dump(os.Stdout)
	case "wordOutput", "word_output":
		return s.WO.Dump(os.Stdout)
	case "itemOutput", "item_output":
		return s.IO.Dump(os.Stdout)
	default:
		return fmt.Errorf("unknown dump target %q", what)
	}
}
