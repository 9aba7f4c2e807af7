package vdev

// Indices into the vdev_stats uint64 array (vdev_stat_t). vs_ops and vs_bytes stay at six
// entries (VS_ZIO_TYPES) so later members keep fixed offsets.
const (
	statTimestamp         = iota /* time since vdev load	*/
	statState                    /* vdev state		*/
	statAux                      /* see vdev_aux_t	*/
	statAlloc                    /* space allocated	*/
	statSpace                    /* total capacity	*/
	statDSpace                   /* deflated capacity	*/
	statRSize                    /* replaceable dev size */
	statESize                    /* expandable dev size */
	statOpsNull                  /* ignore */
	statOpsRead                  /* operation count: read	*/
	statOpsWrite                 /* operation count: write	*/
	statOpsFree                  /* operation count: free	*/
	statOpsClaim                 /* operation count: claim	*/
	statOpsIoctl                 /* operation count: ioctl	*/
	statBytesNull                /* bytes: ignore */
	statBytesRead                /* bytes: read	*/
	statBytesWrite               /* bytes: write	*/
	statBytesFree                /* bytes: free	*/
	statBytesClaim               /* bytes: claim	*/
	statBytesIoctl               /* bytes: ioctl	*/
	statReadErrors               /* read errors		*/
	statWriteErrors              /* write errors		*/
	statChecksumErrors           /* checksum errors	*/
	statInitializeErrors         /* initializing errors	*/
	statSelfHealed               /* self-healed bytes	*/
	statScanRemoving             /* removing?	*/
	statScanProcessed            /* scan processed bytes	*/
	statFragmentation            /* device fragmentation */
	statInitializeBytesDone      /* bytes initialized */
	statInitializeBytesEst       /* total bytes to initialize */
	statInitializeState          /* vdev_initializing_state_t */
	statInitializeActionTime     /* time_t */
	statCheckpointSpace          /* checkpoint-consumed space */
	statResilverDeferred         /* resilver deferred	*/
	statSlowIOs                  /* slow IOs */
)

// vdev_state_t
const (
	StateUnknown  = iota /* Uninitialized vdev			*/
	StateClosed          /* Not currently open			*/
	StateOffline         /* Not allowed to open			*/
	StateRemoved         /* Explicitly removed from system	*/
	StateCantOpen        /* Tried to open, but failed		*/
	StateFaulted         /* External request to fault device	*/
	StateDegraded        /* Replicated vdev with unhealthy kids	*/
	StateHealthy         /* Presumed good			*/
)

// vdev_aux_t values that change the name of a CANT_OPEN vdev.
const (
	auxCorruptData = 2
	auxBadLog      = 13
	auxSplitPool   = 15
)

// pool_state_t
var poolStates = [...]string{
	"ACTIVE",
	"EXPORTED",
	"DESTROYED",
	"SPARE",
	"L2CACHE",
	"UNINITIALIZED",
	"UNAVAIL",
	"POTENTIALLY_ACTIVE",
}

// PoolStateName names a pool_state_t value.
func PoolStateName(state uint64) string {
	if state < uint64(len(poolStates)) {
		return poolStates[state]
	}
	return "UNKNOWN"
}

// StateName returns the name zpool status shows for a vdev state and its auxiliary code.
func StateName(state, aux uint64) string {
	switch state {
	case StateClosed, StateOffline:
		return "OFFLINE"
	case StateRemoved:
		return "REMOVED"
	case StateCantOpen:
		switch aux {
		case auxCorruptData, auxBadLog:
			return "FAULTED"
		case auxSplitPool:
			return "SPLIT"
		}
		return "UNAVAIL"
	case StateFaulted:
		return "FAULTED"
	case StateDegraded:
		return "DEGRADED"
	case StateHealthy:
		return "ONLINE"
	}
	return "UNKNOWN"
}
