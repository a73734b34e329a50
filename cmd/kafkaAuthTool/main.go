package main

import (
	"github.com/alecthomas/kong"
)

type Globals struct {
	Server string `help:"The URL of a kafkaAuth server" env:"KAUTH_URL" default:"http://localhost:8780"`
	Token  string `help:"The authorization token to use against the server" env:"KAUTH_TOKEN"`
}

type CLI struct {
	Globals
	Provision ProvisionCmd `cmd:"" help:"Provision broker access for a transfer and print the endpoint data reference"`
	Revoke    RevokeCmd    `cmd:"" help:"Revoke broker access for a transfer"`
	Status    StatusCmd    `cmd:"" help:"Show the correlation record for a transfer"`
	Reconcile ReconcileCmd `cmd:"" help:"Sweep stale pending correlations"`
}

func main() {
	cli := &CLI{}

	ctx := kong.Parse(cli,
		kong.Name("kafkaAuth"),
		kong.Description("kafkaAuth provisioning administration tool"),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}),
		kong.UsageOnError(),
		kong.Bind(&cli.Globals),
	)

	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}
