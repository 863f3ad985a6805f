package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dweymouth/mediadeck/backend"
	"github.com/dweymouth/mediadeck/backend/ipc"
	"github.com/dweymouth/mediadeck/res"
	"github.com/dweymouth/mediadeck/ui/console"

	"golang.org/x/term"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [options] [file...]\n", res.AppName)
		flag.PrintDefaults()
	}
	flag.Parse()
	if *backend.FlagVersion {
		fmt.Println(res.AppVersion)
		return
	}
	if *backend.FlagHelp {
		flag.Usage()
		return
	}

	myApp, err := backend.StartupApp(res.AppName, res.DisplayName, res.AppVersionTag)
	if errors.Is(err, backend.ErrAnotherInstance) {
		forwardToRunningInstance()
		return
	}
	if err != nil {
		log.Fatalf("fatal startup error: %v", err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	myApp.OnExit = stop

	var con *console.Console
	if *backend.FlagHeadless || !term.IsTerminal(int(os.Stdin.Fd())) {
		myApp.AddCallbacks(backend.LogCallbacks{})
	} else {
		con = console.New(myApp.Controller, os.Stdout)
		myApp.AddCallbacks(con)
	}
	myApp.Start()

	if err := backend.ApplyCommandLine(myApp.Controller, flag.Args()); err != nil {
		log.Printf("command line: %v", err)
	}

	if con != nil {
		if err := con.Run(ctx); err != nil {
			log.Printf("console error: %v", err)
		}
	} else {
		<-ctx.Done()
	}

	log.Println("Running shutdown tasks...")
	myApp.Shutdown()
}

func forwardToRunningInstance() {
	if !backend.HaveCommandLineOptions() {
		log.Println("Another instance is running.")
		return
	}
	cli, err := ipc.Connect()
	if err != nil {
		log.Fatalf("failed to connect to running instance: %v", err)
	}
	if err := backend.ForwardCommandLine(cli, flag.Args()); err != nil {
		log.Fatalf("failed to forward command line: %v", err)
	}
}
