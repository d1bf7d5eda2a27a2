// Package typedict holds the per-dataset column adjustments applied between
// schema augmentation and validation. The rules are data, not code: each
// dataset name maps to an ordered rule list so downstream consumers see a
// stable column contract regardless of source schema drift.
package typedict

import (
	"fmt"

	"github.com/pgharvest/pgharvest/internal/dataset"
)

type Rule struct {
	Column string
	Rename string
	Cast   dataset.Kind
	Drop   bool

	// castSet distinguishes "cast to KindString" from "no cast".
	castSet bool
}

func Renamed(column, to string) Rule {
	return Rule{Column: column, Rename: to}
}

func Cast(column string, kind dataset.Kind) Rule {
	return Rule{Column: column, Cast: kind, castSet: true}
}

func Dropped(column string) Rule {
	return Rule{Column: column, Drop: true}
}

// Dictionary maps dataset names to their adjustment rules. Datasets without
// an entry pass through unchanged.
type Dictionary struct {
	rules map[string][]Rule
}

func New(rules map[string][]Rule) *Dictionary {
	return &Dictionary{rules: rules}
}

// Default carries the adjustments for the known extracts. Monetary columns
// are cast to text so decimal precision survives every consumer, and the raw
// change-tracking column is dropped from both extracts.
func Default() *Dictionary {
	return New(map[string][]Rule{
		"Vendas": {
			Cast("ValorVenda", dataset.KindString),
			Cast("ValorDesconto", dataset.KindString),
			Renamed("CodigoProduto", "idProduto"),
			Dropped("xmin"),
		},
		"Compras": {
			Cast("ValorNF", dataset.KindString),
			Renamed("CodigoFornecedor", "idFornecedor"),
			Dropped("xmin"),
		},
	})
}

func (d *Dictionary) Adjust(t *dataset.Table, name string) (*dataset.Table, error) {
	if t == nil {
		return nil, fmt.Errorf("table is required")
	}
	for _, rule := range d.rules[name] {
		switch {
		case rule.Drop:
			t.DropColumn(rule.Column)
		case rule.Rename != "":
			t.RenameColumn(rule.Column, rule.Rename)
		case rule.castSet:
			index := t.ColumnIndex(rule.Column)
			if index < 0 {
				continue
			}
			if rule.Cast == dataset.KindString {
				t.CastToString(index)
			} else {
				t.Columns[index].Kind = rule.Cast
			}
		}
	}
	return t, nil
}
