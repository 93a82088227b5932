package repository

import "github.com/eslsoft/mistbook/pkg/filterexpr"

var listCardsSchema = filterexpr.Schema{
	Fields: map[string]filterexpr.Field{
		"status": {
			Kind: filterexpr.KindString,
			Ops:  map[filterexpr.Op]string{filterexpr.OpEQ: "Status"},
		},
		"topic": {
			Kind: filterexpr.KindString,
			Ops: map[filterexpr.Op]string{
				filterexpr.OpSW: "Topic",
				filterexpr.OpIN: "Topics",
			},
		},
	},
	Order: filterexpr.OrderSchema{
		DefaultKey:  "updated_at",
		DefaultDesc: true,
		Keys: map[string]string{
			"created_at":  "created_at",
			"updated_at":  "updated_at",
			"next_review": "next_review_date",
			"interval":    "interval_days",
			"id":          "id",
		},
	},
}
