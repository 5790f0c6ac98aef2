package main

import (
	"bufio"
	"encoding/xml"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// saf_check walks a generated batch directory and verifies every item folder
// before it is handed to dspace import. It needs no database or server.

type itemReport struct {
	Career   string
	Folder   string
	Problems []string
}

func main() {
	var (
		batchDir string
		strict   bool
	)

	flag.StringVar(&batchDir, "batch", "", "Path to a generated batch directory (contains one folder per career)")
	flag.BoolVar(&strict, "strict", false, "Treat missing metadata_renati.xml as an error, not a warning")
	flag.Parse()

	if batchDir == "" {
		log.Fatal("-batch is required")
	}

	reports, err := checkBatch(batchDir, strict)
	if err != nil {
		log.Fatalf("failed to scan batch: %v", err)
	}

	broken := printReport(reports)
	fmt.Printf("Items: %d, with problems: %d\n", len(reports), broken)
	if broken > 0 {
		os.Exit(1)
	}
}

func checkBatch(batchDir string, strict bool) ([]itemReport, error) {
	careers, err := os.ReadDir(batchDir)
	if err != nil {
		return nil, err
	}

	var reports []itemReport
	for _, career := range careers {
		if !career.IsDir() {
			continue
		}
		careerDir := filepath.Join(batchDir, career.Name())
		items, err := os.ReadDir(careerDir)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			if !item.IsDir() || !strings.HasPrefix(item.Name(), "item_") {
				continue
			}
			rep := itemReport{Career: career.Name(), Folder: item.Name()}
			rep.Problems = checkItem(filepath.Join(careerDir, item.Name()), strict)
			reports = append(reports, rep)
		}
	}

	sort.Slice(reports, func(i, j int) bool {
		if reports[i].Career != reports[j].Career {
			return reports[i].Career < reports[j].Career
		}
		return reports[i].Folder < reports[j].Folder
	})
	return reports, nil
}

func checkItem(itemDir string, strict bool) []string {
	var problems []string

	if err := checkXML(filepath.Join(itemDir, "dublin_core.xml")); err != nil {
		problems = append(problems, fmt.Sprintf("dublin_core.xml: %v", err))
	}
	if err := checkXML(filepath.Join(itemDir, "metadata_renati.xml")); err != nil && strict {
		problems = append(problems, fmt.Sprintf("metadata_renati.xml: %v", err))
	}
	if _, err := os.Stat(filepath.Join(itemDir, "license.txt")); err != nil {
		problems = append(problems, "license.txt missing")
	}

	problems = append(problems, checkContents(itemDir)...)
	return problems
}

// checkXML confirms the file exists and parses as well-formed XML.
func checkXML(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("missing")
	}
	defer f.Close() //nolint:errcheck

	dec := xml.NewDecoder(f)
	for {
		_, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("malformed: %v", err)
		}
	}
}

// checkContents validates the manifest: every listed bitstream must exist on
// disk and exactly one must carry primary:true.
func checkContents(itemDir string) []string {
	var problems []string

	f, err := os.Open(filepath.Join(itemDir, "contents"))
	if err != nil {
		return []string{"contents manifest missing"}
	}
	defer f.Close() //nolint:errcheck

	primaries := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		name := fields[0]
		if _, err := os.Stat(filepath.Join(itemDir, name)); err != nil {
			problems = append(problems, fmt.Sprintf("contents references missing file %q", name))
		}
		for _, field := range fields[1:] {
			if field == "primary:true" {
				primaries++
			}
		}
	}
	if err := scanner.Err(); err != nil {
		problems = append(problems, fmt.Sprintf("contents unreadable: %v", err))
	}
	if primaries != 1 {
		problems = append(problems, fmt.Sprintf("expected exactly 1 primary bitstream, found %d", primaries))
	}
	return problems
}

func printReport(reports []itemReport) int {
	broken := 0
	for _, rep := range reports {
		if len(rep.Problems) == 0 {
			continue
		}
		broken++
		fmt.Printf("%s/%s\n", rep.Career, rep.Folder)
		for _, p := range rep.Problems {
			fmt.Printf("  - %s\n", p)
		}
	}
	return broken
}
