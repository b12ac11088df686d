package main

import (
	"context"
	"fmt"
	"time"

	"github.com/calehh/proposal-box/types"
	"github.com/spf13/cobra"
)

type submitArguments struct {
	Text     string
	Category string
	Wallet   string
}

var submitArgs submitArguments

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a new proposal",
	Long:  ``,
	Run:   submitRun,
}

func init() {
	submitCmd.Flags().StringVarP(&submitArgs.Text, "text", "t", "", "proposal text")
	submitCmd.Flags().StringVarP(&submitArgs.Category, "tag", "c", string(types.CategoryOther), "category: Grants, Rewards, Trading, Marketing or Other")
	walletFlag(submitCmd, &submitArgs.Wallet)
}

func submitRun(cmd *cobra.Command, args []string) {
	env, err := newCliEnv()
	if err != nil {
		fmt.Printf("open store err:%v\n", err)
		return
	}
	defer env.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	gate, closeGate, err := newGate(ctx, env.conf, env.logger)
	if err != nil {
		fmt.Printf("token gate err:%v\n", err)
		return
	}
	defer closeGate()
	ok, bal, err := gate.Allow(ctx, submitArgs.Wallet)
	if err != nil {
		fmt.Printf("check token balance err:%v\n", err)
		return
	}
	if !ok {
		fmt.Printf("you need at least %d %s tokens to submit proposals, have %s\n", gate.Required, bal.Symbol, bal.Formatted())
		return
	}

	p, err := env.store.Create(types.ProposalInput{
		Text:             submitArgs.Text,
		Category:         submitArgs.Category,
		SubmitterAddress: submitArgs.Wallet,
	})
	if err != nil {
		fmt.Printf("submit proposal err:%v\n", err)
		return
	}
	printJSON(p)
}

type listArguments struct {
	Category string
}

var listArgs listArguments

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List proposals, newest first",
	Long:  ``,
	Run:   listRun,
}

func init() {
	listCmd.Flags().StringVarP(&listArgs.Category, "tag", "c", types.CategoryAll, "category filter")
}

func listRun(cmd *cobra.Command, args []string) {
	env, err := newCliEnv()
	if err != nil {
		fmt.Printf("open store err:%v\n", err)
		return
	}
	defer env.Close()
	printJSON(env.store.ListByCategory(listArgs.Category))
}

type showArguments struct {
	Id string
}

var showArgs showArguments

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show one proposal",
	Long:  ``,
	Run:   showRun,
}

func init() {
	idFlag(showCmd, &showArgs.Id)
}

func showRun(cmd *cobra.Command, args []string) {
	env, err := newCliEnv()
	if err != nil {
		fmt.Printf("open store err:%v\n", err)
		return
	}
	defer env.Close()
	p, ok := env.store.Get(showArgs.Id)
	if !ok {
		fmt.Printf("proposal %s not found\n", showArgs.Id)
		return
	}
	printJSON(p)
}

type statusArguments struct {
	Id     string
	Status string
	Text   string
	Tag    string
}

var statusArgs statusArguments

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Set the status of a proposal, optionally editing its text or category",
	Long:  ``,
	Run:   statusRun,
}

func init() {
	idFlag(statusCmd, &statusArgs.Id)
	statusCmd.Flags().StringVarP(&statusArgs.Status, "status", "s", "", "pending, approved or rejected")
	statusCmd.Flags().StringVarP(&statusArgs.Text, "text", "t", "", "replacement text")
	statusCmd.Flags().StringVarP(&statusArgs.Tag, "tag", "c", "", "replacement category")
}

func statusRun(cmd *cobra.Command, args []string) {
	var patch types.ProposalPatch
	if statusArgs.Status != "" {
		st := types.Status(statusArgs.Status)
		patch.Status = &st
	}
	if statusArgs.Text != "" {
		patch.Text = &statusArgs.Text
	}
	if statusArgs.Tag != "" {
		c := types.Category(statusArgs.Tag)
		patch.Category = &c
	}
	if patch.Empty() {
		fmt.Println("nothing to update")
		return
	}
	if err := patch.Validate(); err != nil {
		fmt.Printf("invalid update err:%v\n", err)
		return
	}

	env, err := newCliEnv()
	if err != nil {
		fmt.Printf("open store err:%v\n", err)
		return
	}
	defer env.Close()
	if !env.store.Update(statusArgs.Id, patch) {
		fmt.Printf("update proposal %s failed\n", statusArgs.Id)
		return
	}
	p, _ := env.store.Get(statusArgs.Id)
	printJSON(p)
}

type deleteArguments struct {
	Id string
}

var deleteArgs deleteArguments

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete a proposal",
	Long:  ``,
	Run:   deleteRun,
}

func init() {
	idFlag(deleteCmd, &deleteArgs.Id)
}

func deleteRun(cmd *cobra.Command, args []string) {
	env, err := newCliEnv()
	if err != nil {
		fmt.Printf("open store err:%v\n", err)
		return
	}
	defer env.Close()
	if !env.store.Delete(deleteArgs.Id) {
		fmt.Printf("proposal %s not found\n", deleteArgs.Id)
		return
	}
	fmt.Printf("proposal %s deleted\n", deleteArgs.Id)
}
