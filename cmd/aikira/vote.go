package main

import (
	"context"
	"fmt"
	"time"

	"github.com/calehh/proposal-box/chain"
	"github.com/calehh/proposal-box/types"
	"github.com/spf13/cobra"
)

type voteArguments struct {
	Id     string
	Wallet string
	Vote   string
}

var voteArgs voteArguments

var voteCmd = &cobra.Command{
	Use:   "vote",
	Short: "Vote up or down on a proposal, or clear a vote with --vote none",
	Long:  ``,
	Run:   voteRun,
}

func init() {
	idFlag(voteCmd, &voteArgs.Id)
	voteCmd.Flags().StringVarP(&voteArgs.Wallet, "wallet", "w", "", "voter wallet address")
	voteCmd.Flags().StringVarP(&voteArgs.Vote, "vote", "v", "up", "up, down or none")
	_ = voteCmd.MarkFlagRequired("wallet")
}

func voteRun(cmd *cobra.Command, args []string) {
	value, err := types.ParseVoteValue(voteArgs.Vote)
	if err != nil {
		fmt.Printf("parse vote err:%v\n", err)
		return
	}
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
	voter := types.VoterKey(voteArgs.Wallet)
	if gate.Enforced() {
		if _, err := chain.ParseAddress(voter); err != nil {
			fmt.Printf("parse wallet err:%v\n", err)
			return
		}
	}
	ok, bal, err := gate.Allow(ctx, voter)
	if err != nil {
		fmt.Printf("check token balance err:%v\n", err)
		return
	}
	if !ok {
		fmt.Printf("you need at least %d %s tokens to vote, have %s\n", gate.Required, bal.Symbol, bal.Formatted())
		return
	}

	if !env.store.Vote(voteArgs.Id, voter, value) {
		fmt.Printf("vote on proposal %s failed\n", voteArgs.Id)
		return
	}
	p, _ := env.store.Get(voteArgs.Id)
	fmt.Printf("upvotes:%d downvotes:%d\n", p.Upvotes, p.Downvotes)
}

type userVoteArguments struct {
	Id     string
	Wallet string
}

var userVoteArgs userVoteArguments

var userVoteCmd = &cobra.Command{
	Use:   "uservote",
	Short: "Print the vote a wallet cast on a proposal",
	Long:  ``,
	Run:   userVoteRun,
}

func init() {
	idFlag(userVoteCmd, &userVoteArgs.Id)
	userVoteCmd.Flags().StringVarP(&userVoteArgs.Wallet, "wallet", "w", "", "voter wallet address")
}

func userVoteRun(cmd *cobra.Command, args []string) {
	env, err := newCliEnv()
	if err != nil {
		fmt.Printf("open store err:%v\n", err)
		return
	}
	defer env.Close()
	vote := env.store.GetUserVote(userVoteArgs.Id, types.VoterKey(userVoteArgs.Wallet))
	if vote == types.VoteNone {
		fmt.Println("none")
		return
	}
	fmt.Println(vote)
}
