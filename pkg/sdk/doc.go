// Package vecrec embeds the vecrec recommendation engine in a Go program.
//
// A Client connects to the vector store holding the per-aspect title profiles
// (Qdrant or Redis with the search module) and answers "more like this" queries
// by fusing the nearest neighbours of every aspect of the seed title.
//
//	client, _ := vecrec.New(ctx,
//	    vecrec.WithQdrant("http://localhost:6333", "", "title_profiles"),
//	    vecrec.WithTMDB(os.Getenv("TMDB_API_KEY"), "movie"),
//	)
//	defer client.Close()
//
//	recs := client.Recommend(ctx, 42, 20)
//	moody := client.RecommendWithMix(ctx, 42, 20, "0-3-1")
//
// Recommendation calls never fail: problems with the store or the metadata
// provider shrink the result instead.
package vecrec
