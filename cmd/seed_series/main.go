// seed_series genera el script SQL que da de alta las series de facturación del
// ejercicio: la serie ordinaria (F) y la de rectificativas (R) del emisor.
//
// Uso: go run ./cmd/seed_series -nif B70456371 -year 2025 [-prefixes F,R]
// Escribe: internal/infrastructure/postgres/migrations/002_seed_series.sql
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

func main() {
	nif := flag.String("nif", "", "NIF del obligado a expedir")
	year := flag.Int("year", 0, "ejercicio fiscal")
	prefixes := flag.String("prefixes", "F,R", "prefijos de serie separados por coma")
	flag.Parse()

	if *nif == "" || *year == 0 {
		fmt.Fprintln(os.Stderr, "Uso: seed_series -nif <NIF> -year <AAAA> [-prefixes F,R]")
		os.Exit(1)
	}

	moduleRoot := findModuleRoot()
	outPath := filepath.Join(moduleRoot, "internal", "infrastructure", "postgres", "migrations", "002_seed_series.sql")
	out, err := os.Create(outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Crear archivo: %v\n", err)
		os.Exit(1)
	}
	defer out.Close()

	fmt.Fprintf(out, "-- Series de facturación %d del emisor %s\n", *year, escapeSQL(*nif))
	fmt.Fprintf(out, "-- Generado con cmd/seed_series\n\n")

	count := 0
	for _, prefix := range strings.Split(*prefixes, ",") {
		prefix = strings.TrimSpace(prefix)
		if prefix == "" {
			continue
		}
		fmt.Fprintf(out, "INSERT INTO invoice_series (id, issuer_nif, prefix, year, last_number, last_huella)\n")
		fmt.Fprintf(out, "VALUES ('%s', '%s', '%s', %d, 0, NULL)\n",
			uuid.New().String(), escapeSQL(*nif), escapeSQL(prefix), *year)
		fmt.Fprintf(out, "ON CONFLICT (issuer_nif, prefix, year) DO NOTHING;\n\n")
		count++
	}

	fmt.Printf("Generado %s: %d series\n", outPath, count)
}

func escapeSQL(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func findModuleRoot() string {
	dir, _ := os.Getwd()
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}
