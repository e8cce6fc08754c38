// Command logtool inspects and archives queue log files offline. It must not
// run against a log owned by a live broker process.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/pushpull/pushpull/internal/logstore"
)

func main() {
	if len(os.Args) < 3 {
		usage()
		os.Exit(2)
	}
	cmd, path := os.Args[1], os.Args[2]

	var err error
	switch cmd {
	case "verify":
		err = verify(path)
	case "dump":
		err = dump(path)
	case "archive":
		if len(os.Args) < 4 {
			usage()
			os.Exit(2)
		}
		err = archive(path, os.Args[3])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("logtool %s: %v", cmd, err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: logtool verify <log>")
	fmt.Fprintln(os.Stderr, "       logtool dump <log>")
	fmt.Fprintln(os.Stderr, "       logtool archive <log> <out>")
}

// verify runs the recovery scan and reports what it found, including whether
// a torn tail had to be removed.
func verify(path string) error {
	stat, err := os.Stat(path)
	if err != nil {
		return err
	}
	lg, err := logstore.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = lg.Close() }()

	fmt.Printf("records: %d\n", lg.Count())
	fmt.Printf("valid bytes: %d\n", lg.Size())
	if torn := stat.Size() - lg.Size(); torn > 0 {
		fmt.Printf("torn tail: %d bytes removed during recovery\n", torn)
	}
	return nil
}

func dump(path string) error {
	lg, err := logstore.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = lg.Close() }()

	for i := uint64(0); i < lg.Count(); i++ {
		payload, err := lg.Read(i)
		if err != nil {
			return err
		}
		fmt.Printf("%d\t%s\n", i, payload)
	}
	return nil
}

func archive(path, out string) error {
	lg, err := logstore.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = lg.Close() }()

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	n, err := lg.Archive(f)
	if err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Printf("archived %d records to %s\n", n, out)
	return nil
}
