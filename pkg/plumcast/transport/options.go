package transport

// procedureOptions captures the per-family client tuning from spec.md
// §4.5's table: priority and max queue depth. Only reltTransport.Send
// reads the table, to label its debug log line with the priority;
// neither transport orders casts by priority or keeps per-family queues.
type procedureOptions struct {
	priority int
	maxQueue int
}

var procedureTable = map[ProcedureID]procedureOptions{
	ProcedurePlumtreeGossip:         {priority: 100, maxQueue: defaultQueueDepth},
	ProcedurePlumtreeIHave:          {priority: 200, maxQueue: defaultQueueDepth},
	ProcedurePlumtreeGraft:          {priority: 100, maxQueue: defaultQueueDepth},
	ProcedurePlumtreePrune:          {priority: 100, maxQueue: defaultQueueDepth},
	ProcedureHyparviewJoin:          {priority: 100, maxQueue: defaultQueueDepth},
	ProcedureHyparviewForwardJoin:   {priority: 100, maxQueue: defaultQueueDepth},
	ProcedureHyparviewNeighbor:      {priority: 100, maxQueue: defaultQueueDepth},
	ProcedureHyparviewNeighborReply: {priority: 100, maxQueue: defaultQueueDepth},
	ProcedureHyparviewDisconnect:    {priority: 100, maxQueue: defaultQueueDepth},
	ProcedureHyparviewShuffle:       {priority: 100, maxQueue: defaultQueueDepth},
	ProcedureHyparviewShuffleReply:  {priority: 100, maxQueue: defaultQueueDepth},
}
