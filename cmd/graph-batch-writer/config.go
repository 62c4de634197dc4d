package main

type FlagType int
type FlagMap map[FlagType]string

const (
	configPath FlagType = iota
	ontologyPath
	inputPath
	outputDir
	lenient
	metricsFile

	typeName
	delimiter
	quote
)
