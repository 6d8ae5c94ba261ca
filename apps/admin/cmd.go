package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/gradebook/core/score"
	"github.com/trezcool/gradebook/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db       *sql.DB
	usrRepo  user.Repository
	scoreSvc score.Service
	out      io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a database migration command (up, down, status, ...)")
	fmt.Fprintln(cli.out, "  adduser -name NAME -username USERNAME -email EMAIL [-admin] - create or update a user")
	fmt.Fprintln(cli.out, "  resetpassword -username USERNAME|EMAIL - reset user's password")
	fmt.Fprintln(cli.out, "  broadsheet -term TERM_ID -class CLASS_LEVEL [-o FILE] - export a broadsheet as CSV")
}

func (cli *commandLine) readPassword(usage func()) (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		usage()
		return "", errHelp
	}
	return string(pwd), nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserName := addUserCmd.String("name", "", "The user's full name.")
	addUserUname := addUserCmd.String("username", "", "The user's username.")
	addUserEmail := addUserCmd.String("email", "", "The user's email. The password will be prompted next.")
	addUserAdmin := addUserCmd.Bool("admin", false, "Grant the admin role.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The user's username or email. The password will be prompted next.")

	broadsheetCmd := flag.NewFlagSet("broadsheet", flag.ContinueOnError)
	broadsheetTerm := broadsheetCmd.String("term", "", "The term ID (the current term if empty).")
	broadsheetClass := broadsheetCmd.String("class", "", "The class level, e.g. \"Basic 6\".")
	broadsheetOut := broadsheetCmd.String("o", "", "The output file (stdout if empty).")

	for _, fs := range []*flag.FlagSet{addUserCmd, resetPasswordCmd, broadsheetCmd} {
		fs.SetOutput(cli.out)
	}

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserUname == "" && *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.readPassword(addUserCmd.Usage)
		if err != nil {
			return err
		}
		_, err = cli.addUser(*addUserName, *addUserUname, *addUserEmail, pwd, *addUserAdmin)
		return err

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.readPassword(resetPasswordCmd.Usage)
		if err != nil {
			return err
		}
		return cli.resetPassword(*resetPasswordUname, pwd)

	case "broadsheet":
		if err := broadsheetCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *broadsheetClass == "" {
			broadsheetCmd.Usage()
			return errHelp
		}
		return cli.exportBroadsheet(*broadsheetTerm, *broadsheetClass, *broadsheetOut)

	default:
		cli.printUsage()
		return errHelp
	}
}
