package pgexec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveExecuteType(t *testing.T) {
	tests := []struct {
		query string
		want  ExecuteType
	}{
		{"SELECT * FROM lista", ExecuteTypeReader},
		{"  select id from lista", ExecuteTypeReader},
		{"WITH x AS (SELECT 1) SELECT * FROM x", ExecuteTypeReader},
		{"VALUES (1), (2)", ExecuteTypeReader},
		{"SHOW server_version", ExecuteTypeReader},
		{"EXPLAIN SELECT 1", ExecuteTypeReader},
		{"SELECT * FROM lista FOR UPDATE", ExecuteTypeReader},
		{"SELECT * FROM lista FOR NO KEY UPDATE", ExecuteTypeReader},
		{"INSERT INTO lista VALUES (5, 'x') RETURNING id", ExecuteTypeReader},
		{"update lista set selite = 'x' returning *", ExecuteTypeReader},
		{"DELETE FROM lista WHERE id = 1 RETURNING id", ExecuteTypeReader},
		{"INSERT INTO lista VALUES (5, 'x')", ExecuteTypeNonQuery},
		{"INSERT INTO lista SELECT * FROM lista", ExecuteTypeNonQuery},
		{"UPDATE lista SET selite = 'select'", ExecuteTypeNonQuery},
		{"DELETE FROM lista", ExecuteTypeNonQuery},
		{"WITH d AS (DELETE FROM lista) SELECT 1", ExecuteTypeNonQuery},
		{"CREATE TABLE t AS SELECT 1", ExecuteTypeNonQuery},
		{"DROP TABLE lista", ExecuteTypeNonQuery},
		{"TRUNCATE lista", ExecuteTypeNonQuery},
		{"SET search_path TO public", ExecuteTypeNonQuery},
		{"VACUUM", ExecuteTypeNonQuery},
		{"-- returning\nINSERT INTO lista VALUES (1, 'x')", ExecuteTypeNonQuery},
		{"/* select */ DELETE FROM lista", ExecuteTypeNonQuery},
		{"INSERT INTO lista VALUES (1, 'returning')", ExecuteTypeNonQuery},
		{"SELECT 'insert into x'", ExecuteTypeReader},
		{`SELECT "update" FROM t`, ExecuteTypeReader},
		{"LOAD 'plugin'", ExecuteTypeNonQuery},
		{"SELECT $$delete from x$$ AS s", ExecuteTypeReader},
		{"SELECT $body$ update t set x = 1 $body$", ExecuteTypeReader},
		{`SELECT E'it\'s' AS a, 'update' AS b`, ExecuteTypeReader},
		{`SELECT e'\\' AS a, 'delete from' AS b`, ExecuteTypeReader},
		{"SELECT 'it''s an update'", ExecuteTypeReader},
		{"INSERT INTO lista VALUES ($1, $$select$$)", ExecuteTypeNonQuery},
		{"DELETE FROM lista WHERE selite = $1 OR selite = $tag$x$tag$", ExecuteTypeNonQuery},
		{"SELECT 1 /* unterminated update", ExecuteTypeReader},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveExecuteType(tt.query, ExecuteTypeAuto))
		})
	}
}

func TestResolveExecuteType_Explicit(t *testing.T) {
	for _, mode := range []ExecuteType{ExecuteTypeNonQuery, ExecuteTypeReader, ExecuteTypeScalar} {
		assert.Equal(t, mode, ResolveExecuteType("SELECT 1", mode))
		assert.Equal(t, mode, ResolveExecuteType("DELETE FROM lista", mode))
	}
}

func TestStripNoise(t *testing.T) {
	tests := map[string]string{
		"SELECT 'a', \"b\"":                    "SELECT '', ''",
		"SELECT $$x$$, $q$y$$z$q$":             "SELECT '', ''",
		`SELECT E'a\'b', 'c'`:                  "SELECT E'', ''",
		"SELECT $1, $2 -- comment\nFROM t":     "SELECT $1, $2  \nFROM t",
		"SELECT /* a */ 1":                     "SELECT   1",
		"SELECT price$ FROM t WHERE a = $$x$$": "SELECT price$ FROM t WHERE a = ''",
	}

	for in, want := range tests {
		assert.Equal(t, want, stripNoise(in), in)
	}
}
