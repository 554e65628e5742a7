package service

import (
	"errors"
	"testing"

	"vehicle-data-tools/internal/domain"

	"github.com/stretchr/testify/require"
)

func TestSplitStatements(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want []string
	}{
		{
			name: "simple",
			sql:  "create table a (id int);\ncreate table b (id int);",
			want: []string{"create table a (id int)", "create table b (id int)"},
		},
		{
			name: "semicolon in string and doubled quote",
			sql:  "insert into notes values ('a;b', 'it''s; fine');",
			want: []string{"insert into notes values ('a;b', 'it''s; fine')"},
		},
		{
			name: "escape string with backslash quote",
			sql:  `select E'don\'t; split'; select 1`,
			want: []string{`select E'don\'t; split'`, "select 1"},
		},
		{
			name: "quoted identifier",
			sql:  `create policy "a;b" on t using (true); select 2`,
			want: []string{`create policy "a;b" on t using (true)`, "select 2"},
		},
		{
			name: "dollar quoted function body",
			sql: `create function f() returns void as $$
begin
  perform 1; perform 2;
end;
$$ language plpgsql;
select 3;`,
			want: []string{"create function f() returns void as $$\nbegin\n  perform 1; perform 2;\nend;\n$$ language plpgsql", "select 3"},
		},
		{
			name: "tagged dollar quote containing $$",
			sql:  "do $body$ begin raise notice '$$;'; end $body$; select 4",
			want: []string{"do $body$ begin raise notice '$$;'; end $body$", "select 4"},
		},
		{
			name: "positional parameter is not a dollar quote",
			sql:  "prepare q as select $1; select 5",
			want: []string{"prepare q as select $1", "select 5"},
		},
		{
			name: "comments dropped",
			sql:  "-- header; with semicolon\ncreate table a (id int); /* block; /* nested; */ still */ select 6; -- trailing",
			want: []string{"create table a (id int)", "select 6"},
		},
		{
			name: "comment only and empty statements",
			sql:  ";;\n-- nothing here\n;",
			want: nil,
		},
		{
			name: "no trailing semicolon",
			sql:  "select 7",
			want: []string{"select 7"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SplitStatements(tt.sql)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestSplitStatements_Unterminated(t *testing.T) {
	for _, sql := range []string{
		"select 'open",
		`select "open`,
		"select $$ open",
		"select 1 /* open",
	} {
		_, err := SplitStatements(sql)
		require.Error(t, err, sql)
		require.True(t, errors.Is(err, domain.ErrUnterminatedSQL), sql)
	}
}

func TestClassifyStatement(t *testing.T) {
	vehicles := domain.TableRef{Schema: "public", Name: "vehicles"}

	created, _ := ClassifyStatement("CREATE TABLE IF NOT EXISTS public.Vehicles (vin text primary key)")
	require.Equal(t, []domain.TableRef{vehicles}, created.Tables)

	created, _ = ClassifyStatement(`create table "Fleet"."Big Trucks" (id int)`)
	require.Equal(t, []domain.TableRef{{Schema: "Fleet", Name: "Big Trucks"}}, created.Tables)

	created, _ = ClassifyStatement("alter table only vehicles enable row level security")
	require.Equal(t, []domain.TableRef{vehicles}, created.RLSTables)

	created, _ = ClassifyStatement(`create policy "Vehicles are readable" on public.vehicles for select using (true)`)
	require.Equal(t, []domain.PolicyRef{{Table: vehicles, Name: "Vehicles are readable"}}, created.Policies)

	created, _ = ClassifyStatement(`insert into storage.buckets (id, name, public) values ('vehicle-photos', 'vehicle-photos', true), ('exports', 'exports', false) on conflict (id) do nothing`)
	require.Equal(t, []string{"vehicle-photos", "exports"}, created.Buckets)

	_, dropped := ClassifyStatement("drop table if exists vehicles, archive.old_vehicles cascade")
	require.Equal(t, []domain.TableRef{vehicles, {Schema: "archive", Name: "old_vehicles"}}, dropped.Tables)

	_, dropped = ClassifyStatement(`drop policy if exists "Vehicles are readable" on vehicles`)
	require.Equal(t, []domain.PolicyRef{{Table: vehicles, Name: "Vehicles are readable"}}, dropped.Policies)

	_, dropped = ClassifyStatement(`delete from storage.buckets where id = 'exports'`)
	require.Equal(t, []string{"exports"}, dropped.Buckets)

	created, dropped = ClassifyStatement("select * from vehicles")
	require.True(t, created.Empty())
	require.True(t, dropped.Empty())
}

func TestDeclaredObjects_FoldsInOrder(t *testing.T) {
	first, _ := classifyAll([]string{
		"create table vehicles (vin text)",
		"create table owners (id int)",
		"alter table vehicles enable row level security",
		`create policy "read" on vehicles for select using (true)`,
	})
	secondObjects, secondDropped := classifyAll([]string{
		"drop table owners",
	})

	total := DeclaredObjects([]*domain.Migration{
		{Version: "1", Objects: first},
		{Version: "2", Objects: secondObjects, Dropped: secondDropped},
	})

	require.Equal(t, []domain.TableRef{{Schema: "public", Name: "vehicles"}}, total.Tables)
	require.Len(t, total.RLSTables, 1)
	require.Len(t, total.Policies, 1)
}
