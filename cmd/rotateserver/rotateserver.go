package main

import (
	"flag"
	"fmt"
	"net/http"

	"github.com/bmharper/pdfrotate"
	"github.com/bmharper/pdfrotate/web"
)

func check(err error) {
	if err != nil {
		panic(err)
	}
}

func main() {
	addr := flag.String("addr", "localhost:8080", "Listen address")
	container := flag.Int("container", 1000, "Default width of the page view, in pixels")
	verbose := flag.Bool("v", false, "Verbose")
	flag.Parse()

	session := pdfrotate.NewSession(pdfrotate.NewFitzRenderer())
	session.Verbose = *verbose

	server := web.NewServer(session)
	server.ContainerWidth = *container
	server.Verbose = *verbose

	fmt.Printf("Listening on http://%v\n", *addr)
	check(http.ListenAndServe(*addr, server.Handler()))
}
