package contracts

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

const strategyEventsJSON = `[
  {"type":"event","name":"PerformanceFeeGovernance","anonymous":false,"inputs":[
    {"name":"destination","type":"address","indexed":true},
    {"name":"token","type":"address","indexed":true},
    {"name":"amount","type":"uint256","indexed":false},
    {"name":"blockNumber","type":"uint256","indexed":true},
    {"name":"timestamp","type":"uint256","indexed":false}]},
  {"type":"event","name":"PerformanceFeeStrategist","anonymous":false,"inputs":[
    {"name":"destination","type":"address","indexed":true},
    {"name":"token","type":"address","indexed":true},
    {"name":"amount","type":"uint256","indexed":false},
    {"name":"blockNumber","type":"uint256","indexed":true},
    {"name":"timestamp","type":"uint256","indexed":false}]},
  {"type":"event","name":"Harvest","anonymous":false,"inputs":[
    {"name":"harvested","type":"uint256","indexed":false},
    {"name":"blockNumber","type":"uint256","indexed":true}]},
  {"type":"event","name":"Tend","anonymous":false,"inputs":[
    {"name":"tended","type":"uint256","indexed":false}]}
]`

// StrategyEvents is the event surface of BaseStrategy.
var StrategyEvents = mustParseABI(strategyEventsJSON)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}

// DecodeLog decodes a strategy event into its named fields. ok is false for
// logs that are not strategy events.
func DecodeLog(log *types.Log) (name string, fields map[string]any, ok bool, err error) {
	if log == nil || len(log.Topics) == 0 {
		return "", nil, false, nil
	}
	event, err := StrategyEvents.EventByID(log.Topics[0])
	if err != nil {
		return "", nil, false, nil
	}

	fields = make(map[string]any, len(event.Inputs))
	if err := event.Inputs.NonIndexed().UnpackIntoMap(fields, log.Data); err != nil {
		return event.Name, nil, true, fmt.Errorf("decode %s data: %w", event.Name, err)
	}
	var indexed abi.Arguments
	for _, input := range event.Inputs {
		if input.Indexed {
			indexed = append(indexed, input)
		}
	}
	if err := abi.ParseTopicsIntoMap(fields, indexed, log.Topics[1:]); err != nil {
		return event.Name, nil, true, fmt.Errorf("decode %s topics: %w", event.Name, err)
	}
	return event.Name, fields, true, nil
}

// EncodeLog builds a strategy event log from named field values. Missing
// fields are an error.
func EncodeLog(name string, fields map[string]any) (*types.Log, error) {
	event, ok := StrategyEvents.Events[name]
	if !ok {
		return nil, fmt.Errorf("unknown event %q", name)
	}

	var topicValues [][]any
	var dataValues []any
	for _, input := range event.Inputs {
		v, ok := fields[input.Name]
		if !ok {
			return nil, fmt.Errorf("event %s: missing field %s", name, input.Name)
		}
		if input.Indexed {
			topicValues = append(topicValues, []any{v})
		} else {
			dataValues = append(dataValues, v)
		}
	}

	topicSets, err := abi.MakeTopics(topicValues...)
	if err != nil {
		return nil, fmt.Errorf("event %s topics: %w", name, err)
	}
	data, err := event.Inputs.NonIndexed().Pack(dataValues...)
	if err != nil {
		return nil, fmt.Errorf("event %s data: %w", name, err)
	}

	log := &types.Log{Topics: []common.Hash{event.ID}, Data: data}
	for _, set := range topicSets {
		log.Topics = append(log.Topics, set[0])
	}
	return log, nil
}
