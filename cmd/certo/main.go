// The certo command registers and reloads ACME accounts and orders
// certificates for a list of domains using dns-01 challenges.
package main

import (
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	acmeclient "github.com/certo-acme/certo/acme/client"
	"github.com/certo-acme/certo/challsrv"
	"github.com/certo-acme/certo/cmd"
)

var (
	directory    string
	caCert       string
	storeType    string
	storeDir     string
	domains      []string
	challSrvAddr string
	dnsListen    string
	pollInterval time.Duration
	pollAttempts int
)

func main() {
	envConf := cmd.ConfigFromEnv()
	log.SetLevel(envConf.LogLevel)

	root := &cobra.Command{
		Use:           "certo",
		Short:         "certo is an ACME (RFC 8555) account and order client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&directory, "directory", "",
		"Directory URL for the ACME server (default: Let's Encrypt staging)")
	root.PersistentFlags().StringVar(&caCert, "ca", "",
		"CA certificate(s) for verifying ACME server HTTPS")
	root.PersistentFlags().StringVar(&storeType, "store", envConf.StoreType,
		"Account store backend: file or vault")
	root.PersistentFlags().StringVar(&storeDir, "store-dir", envConf.StoreDir,
		"Base directory for the file store")
	root.PersistentFlags().StringSliceVar(&domains, "domains", nil,
		"Domains to order a certificate for after the account is ready")
	root.PersistentFlags().StringVar(&challSrvAddr, "challsrv", "",
		"API address of an external pebble-challtestsrv instance for dns-01 responses")
	root.PersistentFlags().StringVar(&dnsListen, "dns-listen", "",
		"Address for an in-process dns-01 response server (e.g. :5252)")
	root.PersistentFlags().DurationVar(&pollInterval, "poll-interval", 2*time.Second,
		"Delay between challenge trigger and each status poll")
	root.PersistentFlags().IntVar(&pollAttempts, "poll-attempts", 5,
		"Number of challenge status polls before giving up")

	root.AddCommand(
		&cobra.Command{
			Use:   "reg <email>",
			Short: "Register a new ACME account",
			Args:  cobra.ExactArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				return run(envConf, args[0], acmeclient.NewClient)
			},
		},
		&cobra.Command{
			Use:   "load <email>",
			Short: "Reopen an existing ACME account from the store",
			Args:  cobra.ExactArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				return run(envConf, args[0], acmeclient.LoadClient)
			},
		},
	)

	if err := root.Execute(); err != nil {
		log.Errorf("%s", err)
		os.Exit(1)
	}
}

// run opens a session with the given constructor, orders the requested
// domains and prints the session summary.
func run(envConf cmd.EnvConfig, email string,
	open func(acmeclient.Config) (*acmeclient.Client, error)) error {

	envConf.StoreType = storeType
	envConf.StoreDir = storeDir
	store, err := envConf.NewStore()
	if err != nil {
		return err
	}

	solver, err := newSolver()
	if err != nil {
		return err
	}
	if solver != nil {
		solver.Run()
		defer solver.Shutdown()
	}

	client, err := open(acmeclient.Config{
		DirectoryURL:    directory,
		CACert:          caCert,
		Email:           email,
		Store:           store,
		ChallengeServer: solver,
		PollInterval:    pollInterval,
		PollAttempts:    pollAttempts,
	})
	if err != nil {
		return err
	}

	if len(domains) > 0 {
		order, err := client.Order(domains)
		if err != nil {
			return err
		}
		log.Infof("Order %q has status %q", order.ID, order.Status)
	}

	fmt.Print(client.Info())
	return nil
}

func newSolver() (challsrv.ChallengeServer, error) {
	switch {
	case challSrvAddr != "":
		return challsrv.NewRemoteChallengeServer(challSrvAddr)
	case dnsListen != "":
		return challsrv.NewDNSServer(dnsListen)
	}
	return nil, nil
}
