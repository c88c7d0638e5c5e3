package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/spf13/cobra"
)

type pendingTx struct {
	ID       string `json:"id"`
	From     string `json:"from"`
	FromName string `json:"from_name"`
	To       string `json:"to"`
	ToName   string `json:"to_name"`
	Amount   uint64 `json:"amount"`
	Fee      uint64 `json:"fee"`
}

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "Print the transactions waiting in the mempool.",
	Run:   pendingRun,
}

func init() {
	rootCmd.AddCommand(pendingCmd)
	pendingCmd.Flags().StringVarP(&url, "url", "u", "http://localhost:8080", "Url of the node.")
}

func pendingRun(cmd *cobra.Command, args []string) {
	resp, err := http.Get(fmt.Sprintf("%s/v1/tx/uncommitted/list", url))
	if err != nil {
		log.Fatal(err)
	}
	defer resp.Body.Close()

	decoder := json.NewDecoder(resp.Body)
	var txs []pendingTx
	if err := decoder.Decode(&txs); err != nil {
		log.Fatal(err)
	}

	fmt.Println("Pending:", len(txs))
	for _, tx := range txs {
		fmt.Printf("%s: %s -> %s amount[%d] fee[%d]\n", tx.ID, tx.FromName, tx.ToName, tx.Amount, tx.Fee)
	}
}
