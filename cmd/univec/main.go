// Command univec trains and inspects multi-task skip-gram embeddings over
// user/item/word/transaction/view/subscription/search observations.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/StatsDLMathsRecomSys/Knowledge-aware-complementary-product-representation-learning/internal/cli"
)

func main() {
	root := cli.NewRoot()
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
