// Package calmbox provides an embedded Go client for the calmbox
// conversational pipeline: tag routing, protocol short-circuits, vector
// retrieval over Redis and guarded reply generation.
//
// The client wires the full pipeline in-process against a Redis instance
// holding the pre-vetted knowledge chunks, so companion firmware can run
// turns without the HTTP surface:
//
//	client, _ := calmbox.New(ctx,
//	    calmbox.WithRedis("localhost:6379", ""),
//	    calmbox.WithKnowledge("data/taxonomy.json", "data/overrides.json", "data/protocols.json"),
//	    calmbox.WithEmbedder(myEmbedder),
//	    calmbox.WithGenerator(myGenerator),
//	)
//	defer client.Close()
//
//	turn, _ := client.Turn(ctx, "又震了 我好怕", nil)
//	fmt.Println(turn.Reply, turn.Outcome)
//
// Retrieval is also exposed directly for tooling and evaluation:
//
//	results, _ := client.Retrieve(ctx, "被困了怎么办", 5)
//	chunks, _ := client.ChunksByIDs(ctx, []string{"c_001"})
package calmbox
