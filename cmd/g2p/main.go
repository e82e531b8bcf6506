// Command g2p scores decoding accuracy against a pronunciation
// dictionary: for each entry it predicts a pronunciation with
// decode.G2P and compares it against the reference, reporting the
// number correct, the number of unique headwords, and the resulting
// accuracy.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"runtime/pprof"
	"strings"

	"github.com/golang/glog"
	"github.com/kho/easy"

	"github.com/kho/g2p/decode"
	"github.com/kho/g2p/jointlm"
)

func main() {
	var args struct {
		Model string `name:"model" usage:"compiled jointlm model file (see g2p-compile)"`
		Dict  string `name:"dict" usage:"pronunciation dictionary, one \"WORD[(n)] PHONEME...\" entry per line; - for stdin"`
	}
	args.Dict = "-"
	beamWidth := flag.Int("beam", 100, "beam width passed to decode.G2P")
	wantKind := flag.String("kind", "", "expected model backend (hashed or sorted); empty accepts either")
	cpuprofile := flag.String("cpuprofile", "", "path to write CPU profile")
	memprofile := flag.String("memprofile", "", "path to write memory profile")
	easy.ParseFlagsAndArgs(&args)

	if args.Model == "" {
		glog.Fatal("-model is required")
	}

	if *cpuprofile != "" {
		w := easy.MustCreate(*cpuprofile)
		pprof.StartCPUProfile(w)
		defer func() {
			pprof.StopCPUProfile()
			w.Close()
		}()
	}
	if *memprofile != "" {
		defer func() {
			w := easy.MustCreate(*memprofile)
			pprof.WriteHeapProfile(w)
			w.Close()
		}()
	}

	kind, model, backing, err := jointlm.FromBinary(args.Model)
	if err != nil {
		glog.Fatal("error loading model: ", err)
	}
	defer backing.Close()
	if *wantKind != "" && kindName(kind) != *wantKind {
		glog.Warningf("-kind=%s requested but the model file is %s", *wantKind, kindName(kind))
	}

	var in *os.File
	if args.Dict == "-" {
		in = os.Stdin
	} else {
		f, err := os.Open(args.Dict)
		if err != nil {
			glog.Fatal(err)
		}
		defer f.Close()
		in = f
	}

	oracle := jointlm.NewOracle(model)

	var correct, uniqueWords int
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := scanner.Text()
		grapheme, reference, ok := splitDictLine(line)
		if !ok {
			continue
		}
		if i := strings.IndexByte(grapheme, '('); i >= 0 {
			grapheme = grapheme[:i]
		} else {
			uniqueWords++
		}
		predicted, ok := decode.G2P(oracle, grapheme, *beamWidth)
		if ok && predicted == reference {
			correct++
		}
	}
	if err := scanner.Err(); err != nil {
		glog.Fatal("reading dictionary: ", err)
	}

	accuracy := 0.0
	if uniqueWords > 0 {
		accuracy = float64(correct) / float64(uniqueWords)
	}
	fmt.Printf("%d %d %g\n", correct, uniqueWords, accuracy)
}

// splitDictLine splits a "WORD[(n)] PHONEME..." dictionary line into
// its grapheme and reference-phoneme fields. ok is false for blank
// lines, which are skipped rather than counted.
func splitDictLine(line string) (grapheme, reference string, ok bool) {
	line = strings.TrimRight(line, "\r\n")
	i := strings.IndexByte(line, ' ')
	if i < 0 {
		return "", "", false
	}
	grapheme = line[:i]
	reference = strings.TrimLeft(line[i+1:], " ")
	if grapheme == "" || reference == "" {
		return "", "", false
	}
	return grapheme, reference, true
}

func kindName(k jointlm.Kind) string {
	switch k {
	case jointlm.KindHashed:
		return "hashed"
	case jointlm.KindSorted:
		return "sorted"
	default:
		return "unknown"
	}
}
