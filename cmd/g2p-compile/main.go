// Command g2p-compile builds a jointlm model from an ARPA-format joint
// n-gram file. With -out left at its default it gob-encodes a Hashed
// model to stdout; given a file path it can also choose the Sorted
// backend and write the mmap-able binary format jointlm.FromBinary
// loads, for running g2p against large precompiled models without
// re-parsing ARPA text on every invocation.
package main

import (
	"encoding/gob"
	"flag"
	"os"

	"github.com/golang/glog"
	"github.com/kho/easy"

	"github.com/kho/g2p/jointlm"
)

func main() {
	var args struct {
		ARPA string `name:"arpa" usage:"path to the ARPA-format joint model; - for stdin"`
		Out  string `name:"out" usage:"path to write the compiled model to; - for gob to stdout"`
		Kind string `name:"kind" usage:"backend to compile to: hashed or sorted"`
	}
	args.ARPA = "-"
	args.Out = "-"
	args.Kind = "hashed"
	scale := flag.Float64("jointlm.scale", 1.5, "scale multiplier for deciding the hash table size")
	easy.ParseFlagsAndArgs(&args)

	var in *os.File
	if args.ARPA == "-" {
		in = os.Stdin
	} else {
		f, err := os.Open(args.ARPA)
		if err != nil {
			glog.Fatal(err)
		}
		defer f.Close()
		in = f
	}

	builder, err := jointlm.BuilderFromARPA(in)
	if err != nil {
		glog.Fatal(err)
	}

	if args.Out == "-" {
		hashed := builder.DumpHashed(*scale)
		if err := gob.NewEncoder(os.Stdout).Encode(*hashed); err != nil {
			glog.Fatal(err)
		}
		return
	}

	switch args.Kind {
	case "hashed":
		if err := builder.DumpHashed(*scale).WriteBinary(args.Out); err != nil {
			glog.Fatal(err)
		}
	case "sorted":
		if err := builder.DumpSorted().WriteBinary(args.Out); err != nil {
			glog.Fatal(err)
		}
	default:
		glog.Fatalf("unknown -kind %q; want hashed or sorted", args.Kind)
	}
}
