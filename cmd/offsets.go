/*
Copyright 2024 CLMTE Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"
)

// offsetCommands groups maintenance commands for the purchase ledger.
func offsetCommands(c *clmteInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "offsets",
		Short: "manage offset purchases",
	}
	cmd.AddCommand(offsetSyncCommand(c))
	return cmd
}

func offsetSyncCommand(c *clmteInstance) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "retry pending offset purchases",
		Run: func(cmd *cobra.Command, args []string) {
			synced, err := c.clmte.SyncPending(context.Background(), limit)
			if err != nil {
				log.Fatalf("Error syncing pending offsets: %v", err)
			}
			fmt.Printf("Synced %d pending offsets\n", synced)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of purchases to sync (0 syncs all)")
	return cmd
}

func priceCommands(c *clmteInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "price",
		Short: "manage the offset price",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "refresh",
		Short: "fetch the current offset price",
		Run: func(cmd *cobra.Command, args []string) {
			price := c.clmte.GetPrice(context.Background(), true)
			if price == nil {
				fmt.Println("No price available")
				return
			}
			fmt.Printf("Offset price: %s\n", *price)
		},
	})
	return cmd
}
