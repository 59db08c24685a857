package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	"github.com/buildbarn/bb-sector-fs/pkg/filesystem"
	"github.com/buildbarn/bb-storage/pkg/blockdevice"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/pflag"
)

// This tool provides access to a volume stored in a regular file.
// Files on the volume have no names. They are identified by the
// number of the sector holding their file header, which is printed
// when a file is created.

const usage = "Usage: bb_sector_fs --device=PATH [--sectors=N] [--maximum-used-sectors=N] [--print-metrics] " +
	"{format | create SIZE | append SECTOR | cat SECTOR | print SECTOR | remove SECTOR | df}"

func parseSector(arguments []string) uint32 {
	if len(arguments) != 1 {
		log.Fatal(usage)
	}
	sector, err := strconv.ParseUint(arguments[0], 10, 32)
	if err != nil {
		log.Fatalf("Invalid sector number %#v: %s", arguments[0], err)
	}
	return uint32(sector)
}

func openFile(v *filesystem.Volume, arguments []string) *filesystem.HeaderBackedFile {
	headerSector := parseSector(arguments)
	f, err := v.OpenFile(headerSector)
	if err != nil {
		log.Fatalf("Failed to open file with header sector %d: %s", headerSector, err)
	}
	return f
}

func main() {
	devicePath := pflag.String("device", "", "Path of the file in which the volume is stored")
	sectorCount := pflag.Uint32("sectors", 1024, "Number of sectors of the volume")
	maximumUsedSectors := pflag.Int64("maximum-used-sectors", 0, "If nonzero, the maximum number of sectors that may be in use")
	printMetrics := pflag.Bool("print-metrics", false, "Print Prometheus metrics on sector allocation to standard error")
	pflag.SetInterspersed(false)
	pflag.Parse()
	args := pflag.Args()
	if *devicePath == "" || len(args) == 0 {
		log.Fatal(usage)
	}
	command, arguments := args[0], args[1:]

	blockDevice, deviceSectorSizeBytes, deviceSectorCount, err := blockdevice.NewBlockDeviceFromFile(
		*devicePath,
		int(*sectorCount)*filesystem.SectorSizeBytes,
		/* zeroInitialize = */ command == "format")
	if err != nil {
		log.Fatalf("Failed to open block device %#v: %s", *devicePath, err)
	}
	if available := int64(deviceSectorSizeBytes) * deviceSectorCount / filesystem.SectorSizeBytes; available < int64(*sectorCount) {
		log.Fatalf("Block device can only hold %d sectors, while %d sectors are needed", available, *sectorCount)
	}
	sectorDevice := filesystem.NewBlockDeviceBackedSectorDevice(blockDevice, *sectorCount)
	configuration := filesystem.VolumeConfiguration{
		MaximumUsedSectors: *maximumUsedSectors,
		EnableMetrics:      *printMetrics,
	}

	if command == "format" {
		if len(arguments) != 0 {
			log.Fatal(usage)
		}
		v, err := filesystem.FormatVolume(sectorDevice, configuration)
		if err != nil {
			log.Fatal("Failed to format volume: ", err)
		}
		fmt.Printf("Formatted volume with %d free sectors\n", v.GetFreeSectorCount())
	} else {
		v, err := filesystem.OpenVolume(sectorDevice, configuration)
		if err != nil {
			log.Fatal("Failed to open volume: ", err)
		}
		mutated := false
		switch command {
		case "create":
			if len(arguments) != 1 {
				log.Fatal(usage)
			}
			sizeBytes, err := strconv.ParseInt(arguments[0], 10, 64)
			if err != nil {
				log.Fatalf("Invalid file size %#v: %s", arguments[0], err)
			}
			headerSector, err := v.CreateFile(sizeBytes)
			if err != nil {
				log.Fatal("Failed to create file: ", err)
			}
			fmt.Println(headerSector)
			mutated = true
		case "append":
			f := openFile(v, arguments)
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				log.Fatal("Failed to read standard input: ", err)
			}
			if _, err := f.Append(data); err != nil {
				log.Fatal("Failed to append to file: ", err)
			}
			mutated = true
		case "cat":
			f := openFile(v, arguments)
			if _, err := io.Copy(os.Stdout, io.NewSectionReader(f, 0, f.Size())); err != nil {
				log.Fatal("Failed to read file: ", err)
			}
		case "print":
			f := openFile(v, arguments)
			if err := f.GetHeader().Print(os.Stdout, v.GetSectorDevice()); err != nil {
				log.Fatal("Failed to print file header: ", err)
			}
		case "remove":
			if err := v.RemoveFile(parseSector(arguments)); err != nil {
				log.Fatal("Failed to remove file: ", err)
			}
			mutated = true
		case "df":
			if len(arguments) != 0 {
				log.Fatal(usage)
			}
			fmt.Printf("%d of %d sectors free\n", v.GetFreeSectorCount(), *sectorCount)
		default:
			log.Fatal(usage)
		}
		if mutated {
			if err := v.Flush(); err != nil {
				log.Fatal("Failed to flush volume: ", err)
			}
		}
	}

	if *printMetrics {
		metricFamilies, err := prometheus.DefaultGatherer.Gather()
		if err != nil {
			log.Fatal("Failed to gather metrics: ", err)
		}
		for _, metricFamily := range metricFamilies {
			if _, err := expfmt.MetricFamilyToText(os.Stderr, metricFamily); err != nil {
				log.Fatal("Failed to print metrics: ", err)
			}
		}
	}
}
