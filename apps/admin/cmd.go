package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"syscall"

	"golang.org/x/term"

	"github.com/vintech/portal/core"
	"github.com/vintech/portal/core/identity"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	identitySvc *identity.Service
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  provision -name NAME -email EMAIL [-role owner|manager|staff] [-branch BRANCH] - create an account; the password is prompted next")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	provisionCmd := flag.NewFlagSet("provision", flag.ExitOnError)
	provisionName := provisionCmd.String("name", "", "The account holder's full name.")
	provisionEmail := provisionCmd.String("email", "", "The sign-in email.")
	provisionRole := provisionCmd.String("role", identity.RoleOwner, "One of: owner, manager, staff.")
	provisionBranch := provisionCmd.String("branch", "all", "The branch scope; \"all\" is owner-only.")

	switch args[1] {
	case "provision":
		if err := provisionCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *provisionName == "" || *provisionEmail == "" {
			provisionCmd.Usage()
			return errHelp
		}
		fmt.Print("Enter password:")
		pwd, err := readPasswordFunc(syscall.Stdin)
		fmt.Println()
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			provisionCmd.Usage()
			return errHelp
		}
		return cli.provision(*provisionName, *provisionEmail, *provisionRole, *provisionBranch, string(pwd))
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) provision(name, email, role, branchName, pwd string) error {
	ni := identity.NewIdentity{
		Name:     name,
		Email:    email,
		Role:     role,
		Branch:   branchName,
		Password: pwd,
	}
	if err := ni.Validate(core.Validate, core.Translator); err != nil {
		return err
	}

	ident, err := cli.identitySvc.Provision(context.Background(), ni)
	if err != nil {
		return err
	}
	fmt.Printf("provisioned %s (%s) as %s on branch %q\n", ident.Name, ident.Email, ident.Role, ident.Branch)
	return nil
}
