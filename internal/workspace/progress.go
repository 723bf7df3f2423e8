package workspace

// ProgressReporter provides callbacks for reporting refresh progress.
// Implementations can display progress bars, log messages, or remain silent.
type ProgressReporter interface {
	// OnDiscoveryStart is called when file enumeration begins.
	OnDiscoveryStart()

	// OnDiscoveryComplete is called once every root has been enumerated.
	OnDiscoveryComplete(totalFiles int)

	// OnFileScanned is called after each file is scanned. It may be called
	// from several goroutines at once.
	OnFileScanned(filePath string)

	// OnComplete is called after a refresh result has been committed.
	OnComplete(stats Stats)
}

// NoOpProgressReporter is a progress reporter that does nothing.
type NoOpProgressReporter struct{}

func (n *NoOpProgressReporter) OnDiscoveryStart()                {}
func (n *NoOpProgressReporter) OnDiscoveryComplete(totalFiles int) {}
func (n *NoOpProgressReporter) OnFileScanned(filePath string)     {}
func (n *NoOpProgressReporter) OnComplete(stats Stats)            {}
