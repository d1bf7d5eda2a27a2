package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pgharvest/pgharvest/internal/inspect"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: pgharvest-inspect <dataset-path>")
		os.Exit(2)
	}

	summary, err := inspect.Summarize(context.Background(), os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "inspect failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("rows: %d\nfiles: %d\n", summary.TotalRows, summary.Files)
	for _, partition := range summary.Partitions {
		fmt.Printf("%s\t%d\n", partition.Partition, partition.Rows)
	}
}
