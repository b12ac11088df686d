package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

type exportArguments struct {
	Dir string
}

var exportArgs exportArguments

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write all proposals to a dated JSON file",
	Long:  ``,
	Run:   exportRun,
}

func init() {
	exportCmd.Flags().StringVarP(&exportArgs.Dir, "dir", "o", "", "output directory, defaults to service.export_dir")
}

func exportRun(cmd *cobra.Command, args []string) {
	env, err := newCliEnv()
	if err != nil {
		fmt.Printf("open store err:%v\n", err)
		return
	}
	defer env.Close()
	dir := exportArgs.Dir
	if dir == "" {
		dir = env.conf.ExportDir()
	}
	if err = os.MkdirAll(dir, 0o755); err != nil {
		fmt.Printf("create export dir err:%v\n", err)
		return
	}
	path, err := env.store.ExportToFile(dir)
	if err != nil {
		fmt.Printf("export err:%v\n", err)
		return
	}
	fmt.Println(path)
}

type importArguments struct {
	File  string
	Merge bool
}

var importArgs importArguments

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load proposals from an exported JSON file",
	Long:  `Replace the stored proposals with the file contents, or with --merge add only proposals whose ids are new.`,
	Run:   importRun,
}

func init() {
	importCmd.Flags().StringVarP(&importArgs.File, "file", "f", "", "export file to read")
	importCmd.Flags().BoolVar(&importArgs.Merge, FlagMerge, false, "keep stored proposals and add new ones")
	_ = importCmd.MarkFlagRequired("file")
}

func importRun(cmd *cobra.Command, args []string) {
	dat, err := os.ReadFile(importArgs.File)
	if err != nil {
		fmt.Printf("read import file err:%v\n", err)
		return
	}
	env, err := newCliEnv()
	if err != nil {
		fmt.Printf("open store err:%v\n", err)
		return
	}
	defer env.Close()
	if !env.store.Import(dat, importArgs.Merge) {
		fmt.Println("import failed, store left unchanged")
		return
	}
	fmt.Printf("imported, %d proposals stored\n", len(env.store.List()))
}
