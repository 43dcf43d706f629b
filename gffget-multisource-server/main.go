package main

import (
	"flag"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/googlegenomics/gffget/gff"
	"github.com/googlegenomics/gffget/gffget-multisource-server/file"
)

var (
	port      = flag.Int("port", 8080, "HTTP service port")
	period    = flag.Int("period", gff.DefaultPeriod, "index sampling period")
	directory = flag.String("directory", "", "directory that contains gff/gff.gz files")
)

func main() {
	flag.Parse()
	router := gin.Default()

	if *directory == "" {
		panic("no directory specified")
	}

	router.GET("/features/:id", file.NewFeaturesHandler(*directory, *period))
	router.Run(fmt.Sprintf(":%d", *port))
}
