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
	"fmt"
	"log"
	"os"

	"github.com/clmte/clmte"
	"github.com/clmte/clmte/config"
	"github.com/clmte/clmte/database"
	"github.com/clmte/clmte/internal/notification"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Clmte represents the CLI application, encapsulating the root Cobra command.
type Clmte struct {
	cmd *cobra.Command
}

// clmteInstance holds the service and its configuration for the commands.
type clmteInstance struct {
	clmte *clmte.Clmte
	cnf   *config.Configuration
}

// recoverPanic handles any panics during program execution and logs the error using Logrus.
func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun loads the configuration and builds the service before any command runs.
func preRun(app *clmteInstance, configFile *string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := config.InitConfig(*configFile)
		if err != nil {
			log.Fatal("error loading config", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		service, err := setupClmte(cnf)
		if err != nil {
			notification.NotifyError(err)
			log.Fatal(err)
		}

		// System errors reach the shop through the same webhook queue as
		// purchase events.
		notification.RegisterWebhookSender(func(event string, payload interface{}) error {
			return service.SendWebhook(clmte.NewWebhook{Event: event, Payload: payload})
		})

		app.clmte = service
		app.cnf = cnf
		return nil
	}
}

func setupClmte(cfg *config.Configuration) (*clmte.Clmte, error) {
	db, err := database.NewDataSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("error getting datasource: %v", err)
	}

	service, err := clmte.NewClmte(db)
	if err != nil {
		return nil, fmt.Errorf("error creating clmte: %v", err)
	}
	return service, nil
}

// NewCLI creates the root command and registers the server, worker,
// migration and maintenance subcommands.
func NewCLI() *Clmte {
	configFile := "./clmte.json"
	c := &clmteInstance{}

	var rootCmd = &cobra.Command{
		Use:   "clmte",
		Short: "Carbon offsets for shop orders",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", configFile, "Configuration file for clmte")
	rootCmd.PersistentPreRunE = preRun(c, &configFile)

	rootCmd.AddCommand(serverCommands(c))
	rootCmd.AddCommand(workerCommands(c))
	rootCmd.AddCommand(migrateCommands(c))
	rootCmd.AddCommand(offsetCommands(c))
	rootCmd.AddCommand(priceCommands(c))
	rootCmd.AddCommand(configCommands())

	return &Clmte{cmd: rootCmd}
}

func (w Clmte) executeCLI() {
	if err := w.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
