package main

import (
	"log"
	"os"

	"github.com/vintech/portal/core"
	"github.com/vintech/portal/core/identity"
	emailsvc "github.com/vintech/portal/services/email"
	"github.com/vintech/portal/storage/backend"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()
	identity.InitValidators(core.Validate, core.Translator)

	client := backend.NewClient(conf)
	identitySvc := identity.NewService(
		backend.NewIdentityRepo(client),
		backend.NewAuth(client),
		emailsvc.NewConsoleService(conf),
		conf,
	)

	// start CLI
	cli := commandLine{identitySvc: identitySvc}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
