package storage

import (
	"fmt"
	"regexp"
)

// Symbols written as schema.table.field are references to a column of tickers.
var pgSymbolRegex = regexp.MustCompile(`^(\w+)\.(\w+)\.(\w+)$`)

// IsSymbolRef reports whether symbol names a postgres column instead of a ticker.
func IsSymbolRef(symbol string) bool {
	return pgSymbolRegex.MatchString(symbol)
}

// -----------------------------------------------------------------------------

// ExpandSymbols replaces every schema.table.field reference with the tickers
// stored in that column. Plain symbols pass through unchanged, duplicates are dropped.
func (d *PostgresDB) ExpandSymbols(rawSymbols []string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	add := func(s string) {
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}

	for _, sym := range rawSymbols {
		matches := pgSymbolRegex.FindStringSubmatch(sym)
		if len(matches) != 4 {
			add(sym)
			continue
		}

		loaded, err := d.GetSymbolsFromTable(matches[1], matches[2], matches[3])
		if err != nil {
			return out, fmt.Errorf("failed to load symbols from %s: %w", sym, err)
		}
		d.Logger.Info("Expanded %s into %d symbols", sym, len(loaded))
		for _, s := range loaded {
			add(s)
		}
	}
	return out, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) GetSymbolsFromTable(schema, table, field string) ([]string, error) {
	// identifiers are \w+ from the regex and quoted below
	query := fmt.Sprintf(`SELECT DISTINCT "%s" FROM "%s"."%s"`, field, schema, table)

	rows, err := d.DB.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		if s != "" {
			symbols = append(symbols, s)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return symbols, nil
}
