// Command refltab inspects reflection tables stored in HDF5 files.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/robert-malhotra/go-reftable/hdf5"
	"github.com/robert-malhotra/go-reftable/reftable"
)

var (
	groupPath string
	verbose   bool
)

func main() {
	root := &cobra.Command{
		Use:   "refltab",
		Short: "Inspect reflection tables stored in HDF5 files",
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	dump := &cobra.Command{
		Use:   "dump <file>",
		Short: "Print the columns and experiment metadata of a reflection table",
		Args:  cobra.ExactArgs(1),
		RunE:  runDump,
	}
	dump.Flags().StringVarP(&groupPath, "group", "g", reftable.DefaultReflectionGroup,
		"group path the table is stored under")

	tree := &cobra.Command{
		Use:   "tree <file>",
		Short: "Print the raw group/dataset tree of an HDF5 file",
		Args:  cobra.ExactArgs(1),
		RunE:  runTree,
	}

	root.AddCommand(dump, tree)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func logLevel() slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelWarn
}

func runDump(cmd *cobra.Command, args []string) error {
	logger := reftable.NewTextLogger(logLevel())

	table, err := reftable.FromFile(args[0],
		reftable.WithGroup(groupPath),
		reftable.WithLogger(logger))
	if err != nil {
		return err
	}

	fmt.Printf("%s (group %s)\n", args[0], groupPath)
	fmt.Printf("  experiment ids: %v\n", table.ExperimentIDs())
	fmt.Printf("  identifiers:    %v\n", table.Identifiers())
	fmt.Printf("  columns (%d, %d rows):\n", table.NumColumns(), table.RowCount())

	for _, name := range table.ColumnNames() {
		col, _ := table.Column(name)
		fmt.Printf("    %-28s %-8s %v\n", name, col.DType(), col.Shape())
	}
	return nil
}

func runTree(cmd *cobra.Command, args []string) error {
	f, err := hdf5.Open(args[0])
	if err != nil {
		return fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	fmt.Printf("%s (superblock v%d)\n", args[0], f.Version())

	return hdf5.Walk(f.Root(), func(path string, obj interface{}, err error) error {
		if err != nil {
			fmt.Printf("%s: ERROR %v\n", path, err)
			return nil
		}
		switch o := obj.(type) {
		case *hdf5.Group:
			fmt.Printf("group   %s  attrs=%v\n", path, o.Attrs())
		case *hdf5.Dataset:
			fmt.Printf("dataset %s  shape=%v attrs=%v\n", path, o.Shape(), o.Attrs())
		}
		return nil
	})
}
