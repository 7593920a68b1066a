package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/mrexodia/icicle-emu/pkg/cpu"
	"github.com/mrexodia/icicle-emu/pkg/env"
	"github.com/mrexodia/icicle-emu/pkg/exec"
	"github.com/mrexodia/icicle-emu/pkg/isa"
	"github.com/mrexodia/icicle-emu/pkg/lifter"
	"github.com/mrexodia/icicle-emu/pkg/mem"
	"github.com/mrexodia/icicle-emu/pkg/snapshotstore"
)

func main() {
	imagePath := flag.String("image", "", "Path to a flat binary image (demo ISA)")
	base := flag.Uint64("base", 0x400000, "Load address of the image")
	limit := flag.Uint64("limit", 0, "Instruction limit (0 = unlimited)")
	tracePath := flag.String("trace", "", "Write an execution trace to this file")
	dbPath := flag.String("snapshot-db", "", "Persist a final snapshot into this database")

	flag.Parse()

	if *imagePath == "" {
		log.Fatal("Error: --image flag is required")
	}

	image, err := os.ReadFile(*imagePath)
	if err != nil {
		log.Fatalf("Failed to read image: %v", err)
	}

	if *tracePath != "" {
		if err := exec.InitFileLogger(*tracePath); err != nil {
			log.Fatalf("Failed to open trace file: %v", err)
		}
	}

	c := cpu.NewCpu(mem.NewMmu())
	c.IcountLimit = *limit

	environment := env.NewRawEnv(*base)
	if err := environment.Load(c, image); err != nil {
		log.Fatalf("Failed to load image: %v", err)
	}

	vm := exec.NewVM(c, environment, lifter.NewBlockLifter(isa.Decoder{}))
	exit := vm.Run()

	fmt.Printf("exit: %v\n", exit)
	fmt.Printf("pc=%#x icount=%d\n", c.Pc, c.Icount)

	if *dbPath != "" {
		store, err := snapshotstore.Open(*dbPath)
		if err != nil {
			log.Fatalf("Failed to open snapshot store: %v", err)
		}
		defer store.Close()

		payload, err := c.Snapshot().MarshalBinary()
		if err != nil {
			log.Fatalf("Failed to serialize snapshot: %v", err)
		}
		key, err := store.Save(snapshotstore.KindCpu, payload)
		if err != nil {
			log.Fatalf("Failed to persist snapshot: %v", err)
		}
		fmt.Printf("saved cpu snapshot %x\n", key[:8])
	}
}
