package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/urfave/cli/v2"

	"github.com/thrasher-corp/localbitcoins"
)

const defaultTimeout = time.Second * 30

var (
	configFile string
	host       string
	verbose    bool
	timeout    time.Duration
)

func jsonOutput(in interface{}) {
	j, err := json.MarshalIndent(in, "", " ")
	if err != nil {
		return
	}
	fmt.Println(string(j))
}

// setupClient builds a client from the viper config merged with CLI flags.
// Credentials come from the config file or the LBCLI_API_KEY /
// LBCLI_API_SECRET environment variables.
func setupClient(c *cli.Context) (*localbitcoins.LocalBitcoins, context.Context, context.CancelFunc, error) {
	v := viper.New()
	v.SetEnvPrefix("LBCLI")
	v.AutomaticEnv()
	_ = v.BindEnv("api_key")
	_ = v.BindEnv("api_secret")

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, nil, nil, errors.Wrap(err, "unable to read config file")
		}
	} else {
		v.SetConfigName(".lbcli")
		v.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		// A missing default config is fine; env vars may carry the credentials
		_ = v.ReadInConfig()
	}

	opts := []localbitcoins.Option{}
	if verbose {
		logrus.SetLevel(logrus.DebugLevel)
		opts = append(opts, localbitcoins.WithVerbose())
	}

	l, err := localbitcoins.New(v.GetString("api_key"), v.GetString("api_secret"), opts...)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "client setup failed")
	}

	if host == "" {
		host = v.GetString("host")
	}
	if host != "" {
		if err := l.SetAPIURL(host); err != nil {
			return nil, nil, nil, err
		}
	}

	ctx, cancel := context.WithTimeout(c.Context, timeout)
	return l, ctx, cancel, nil
}

func main() {
	app := cli.NewApp()
	app.Name = "lbcli"
	app.Usage = "command line interface for the LocalBitcoins API"
	app.EnableBashCompletion = true
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Usage:       "config file containing api_key, api_secret and host",
			Destination: &configFile,
		},
		&cli.StringFlag{
			Name:        "host",
			Usage:       "override the API base URL",
			Destination: &host,
		},
		&cli.BoolFlag{
			Name:        "verbose",
			Usage:       "enable request/response tracing",
			Destination: &verbose,
		},
		&cli.DurationFlag{
			Name:        "timeout",
			Usage:       "per-call timeout",
			Value:       defaultTimeout,
			Destination: &timeout,
		},
	}
	app.Commands = []*cli.Command{
		myselfCommand,
		accountInfoCommand,
		dashboardCommand,
		walletCommand,
		walletBalanceCommand,
		walletSendCommand,
		walletAddressCommand,
		tickerCommand,
		orderbookCommand,
		tradesCommand,
		releaseCommand,
		markPaidCommand,
		messagesCommand,
		notificationsCommand,
		currenciesCommand,
		paymentMethodsCommand,
		rawCommand,
	}

	if err := app.Run(os.Args); err != nil {
		logrus.Fatal(err)
	}
}

var myselfCommand = &cli.Command{
	Name:  "myself",
	Usage: "return the token owner's profile",
	Action: func(c *cli.Context) error {
		l, ctx, cancel, err := setupClient(c)
		if err != nil {
			return err
		}
		defer cancel()
		info, err := l.GetAccountInformation(ctx, "", true)
		if err != nil {
			return err
		}
		jsonOutput(info)
		return nil
	},
}

var accountInfoCommand = &cli.Command{
	Name:      "account-info",
	Usage:     "return the public profile of a user",
	ArgsUsage: "<username>",
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			return cli.ShowSubcommandHelp(c)
		}
		l, ctx, cancel, err := setupClient(c)
		if err != nil {
			return err
		}
		defer cancel()
		info, err := l.GetAccountInformation(ctx, c.Args().First(), false)
		if err != nil {
			return err
		}
		jsonOutput(info)
		return nil
	},
}

var dashboardCommand = &cli.Command{
	Name:      "dashboard",
	Usage:     "list open trades, or trades in a given state",
	ArgsUsage: "[released|canceled|closed]",
	Action: func(c *cli.Context) error {
		l, ctx, cancel, err := setupClient(c)
		if err != nil {
			return err
		}
		defer cancel()

		var trades []localbitcoins.DashBoardInfo
		switch c.Args().First() {
		case "":
			trades, err = l.GetDashboardInfo(ctx)
		case "released":
			trades, err = l.GetDashboardReleasedTrades(ctx)
		case "canceled":
			trades, err = l.GetDashboardCancelledTrades(ctx)
		case "closed":
			trades, err = l.GetDashboardClosedTrades(ctx)
		default:
			return errors.Errorf("unknown dashboard state %q", c.Args().First())
		}
		if err != nil {
			return err
		}
		jsonOutput(trades)
		return nil
	},
}

var walletCommand = &cli.Command{
	Name:  "wallet",
	Usage: "return wallet information including recent transactions",
	Action: func(c *cli.Context) error {
		l, ctx, cancel, err := setupClient(c)
		if err != nil {
			return err
		}
		defer cancel()
		info, err := l.GetWalletInfo(ctx)
		if err != nil {
			return err
		}
		jsonOutput(info)
		return nil
	},
}

var walletBalanceCommand = &cli.Command{
	Name:  "wallet-balance",
	Usage: "return the wallet balance only",
	Action: func(c *cli.Context) error {
		l, ctx, cancel, err := setupClient(c)
		if err != nil {
			return err
		}
		defer cancel()
		bal, err := l.GetWalletBalance(ctx)
		if err != nil {
			return err
		}
		jsonOutput(bal)
		return nil
	},
}

var walletSendCommand = &cli.Command{
	Name:      "wallet-send",
	Usage:     "send bitcoin from the wallet to an address",
	ArgsUsage: "<address> <amount>",
	Flags: []cli.Flag{
		&cli.Int64Flag{
			Name:  "pin",
			Usage: "wallet PIN code, routes through the PIN protected endpoint",
		},
	},
	Action: func(c *cli.Context) error {
		if c.NArg() != 2 {
			return cli.ShowSubcommandHelp(c)
		}
		amount, err := decimal.NewFromString(c.Args().Get(1))
		if err != nil {
			return errors.Wrap(err, "invalid amount")
		}
		l, ctx, cancel, err := setupClient(c)
		if err != nil {
			return err
		}
		defer cancel()
		if err := l.WalletSend(ctx, c.Args().First(), amount, c.Int64("pin")); err != nil {
			return err
		}
		fmt.Println("money is being sent")
		return nil
	},
}

var walletAddressCommand = &cli.Command{
	Name:  "wallet-address",
	Usage: "return an unused receiving address",
	Action: func(c *cli.Context) error {
		l, ctx, cancel, err := setupClient(c)
		if err != nil {
			return err
		}
		defer cancel()
		addr, err := l.GetWalletAddress(ctx)
		if err != nil {
			return err
		}
		fmt.Println(addr)
		return nil
	},
}

var tickerCommand = &cli.Command{
	Name:  "ticker",
	Usage: "return price statistics for all tradable currencies",
	Action: func(c *cli.Context) error {
		l, ctx, cancel, err := setupClient(c)
		if err != nil {
			return err
		}
		defer cancel()
		tick, err := l.GetTicker(ctx)
		if err != nil {
			return err
		}
		jsonOutput(tick)
		return nil
	},
}

var orderbookCommand = &cli.Command{
	Name:      "orderbook",
	Usage:     "return the online ad orderbook for a currency",
	ArgsUsage: "<currency>",
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			return cli.ShowSubcommandHelp(c)
		}
		l, ctx, cancel, err := setupClient(c)
		if err != nil {
			return err
		}
		defer cancel()
		ob, err := l.GetOrderbook(ctx, c.Args().First())
		if err != nil {
			return err
		}
		jsonOutput(ob)
		return nil
	},
}

var tradesCommand = &cli.Command{
	Name:      "trades",
	Usage:     "return closed trades for a currency",
	ArgsUsage: "<currency>",
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			return cli.ShowSubcommandHelp(c)
		}
		l, ctx, cancel, err := setupClient(c)
		if err != nil {
			return err
		}
		defer cancel()
		trades, err := l.GetTrades(ctx, c.Args().First(), nil)
		if err != nil {
			return err
		}
		jsonOutput(trades)
		return nil
	},
}

var releaseCommand = &cli.Command{
	Name:      "release",
	Usage:     "release escrowed funds for a trade",
	ArgsUsage: "<contact_id>",
	Flags: []cli.Flag{
		&cli.Int64Flag{
			Name:  "pin",
			Usage: "wallet PIN code, routes through the PIN protected endpoint",
		},
	},
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			return cli.ShowSubcommandHelp(c)
		}
		l, ctx, cancel, err := setupClient(c)
		if err != nil {
			return err
		}
		defer cancel()
		if pin := c.Int64("pin"); pin > 0 {
			err = l.ReleaseFundsByPin(ctx, c.Args().First(), pin)
		} else {
			err = l.ReleaseFunds(ctx, c.Args().First())
		}
		if err != nil {
			return err
		}
		fmt.Println("funds released")
		return nil
	},
}

var markPaidCommand = &cli.Command{
	Name:      "mark-paid",
	Usage:     "mark a trade as paid",
	ArgsUsage: "<contact_id>",
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			return cli.ShowSubcommandHelp(c)
		}
		l, ctx, cancel, err := setupClient(c)
		if err != nil {
			return err
		}
		defer cancel()
		if err := l.MarkAsPaid(ctx, c.Args().First()); err != nil {
			return err
		}
		fmt.Println("marked as paid")
		return nil
	},
}

var messagesCommand = &cli.Command{
	Name:      "messages",
	Usage:     "list chat messages for a trade",
	ArgsUsage: "<contact_id>",
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			return cli.ShowSubcommandHelp(c)
		}
		l, ctx, cancel, err := setupClient(c)
		if err != nil {
			return err
		}
		defer cancel()
		msgs, err := l.GetMessages(ctx, c.Args().First())
		if err != nil {
			return err
		}
		jsonOutput(msgs)
		return nil
	},
}

var notificationsCommand = &cli.Command{
	Name:  "notifications",
	Usage: "list recent notifications",
	Action: func(c *cli.Context) error {
		l, ctx, cancel, err := setupClient(c)
		if err != nil {
			return err
		}
		defer cancel()
		notifications, err := l.GetNotifications(ctx)
		if err != nil {
			return err
		}
		jsonOutput(notifications)
		return nil
	},
}

var currenciesCommand = &cli.Command{
	Name:  "currencies",
	Usage: "list recognized fiat currencies",
	Action: func(c *cli.Context) error {
		l, ctx, cancel, err := setupClient(c)
		if err != nil {
			return err
		}
		defer cancel()
		currencies, err := l.GetCurrencies(ctx)
		if err != nil {
			return err
		}
		jsonOutput(currencies)
		return nil
	},
}

var paymentMethodsCommand = &cli.Command{
	Name:      "payment-methods",
	Usage:     "list valid payment methods, optionally filtered by country",
	ArgsUsage: "[countrycode]",
	Action: func(c *cli.Context) error {
		l, ctx, cancel, err := setupClient(c)
		if err != nil {
			return err
		}
		defer cancel()

		var methods map[string]localbitcoins.PaymentMethod
		if cc := c.Args().First(); cc != "" {
			methods, err = l.GetPaymentMethodsByCountry(ctx, cc)
		} else {
			methods, err = l.GetPaymentMethods(ctx)
		}
		if err != nil {
			return err
		}
		jsonOutput(methods)
		return nil
	},
}

var rawCommand = &cli.Command{
	Name:      "raw",
	Usage:     "invoke a catalogue endpoint by name and print the raw payload",
	ArgsUsage: "<endpoint> [path arguments...]",
	Action: func(c *cli.Context) error {
		if c.NArg() < 1 {
			return cli.ShowSubcommandHelp(c)
		}
		l, ctx, cancel, err := setupClient(c)
		if err != nil {
			return err
		}
		defer cancel()
		raw, err := l.CallRaw(ctx, c.Args().First(), c.Args().Slice()[1:], nil)
		if err != nil {
			return err
		}
		var out interface{}
		if err := json.Unmarshal(raw, &out); err != nil {
			fmt.Println(string(raw))
			return nil
		}
		jsonOutput(out)
		return nil
	},
}
