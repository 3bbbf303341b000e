// Package laudos is an in-process Go client for the laudos report retrieval pipeline.
//
// It ranks previously recorded radiology reports of an exam by lexical (Jaccard)
// similarity to a query, reading candidates from Supabase, PostgreSQL,
// Redis/Valkey or an embedded bbolt file.
//
//	client, _ := laudos.New(ctx, laudos.WithBolt("laudos.db"))
//	defer client.Close()
//
//	_, _ = client.Import(ctx, []laudos.Report{{
//	    ID: "42", Exam: "TC de tórax", Text: "Nódulo pulmonar de 8 mm no lobo superior direito.",
//	}})
//	results, _ := client.Search(ctx, "nódulo pulmonar", "TC de tórax", 5)
package laudos
