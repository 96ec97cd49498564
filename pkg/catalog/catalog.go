// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package catalog holds the static lists shared by the api and the client:
// cosmetic video and audio filters and the moderation report reasons.
package catalog

type FilterType string

const (
	FilterNormal   FilterType = "normal"
	FilterNoir     FilterType = "noir"
	FilterSepia    FilterType = "sepia"
	FilterCyber    FilterType = "cyber"
	FilterVignette FilterType = "vignette"
	FilterBlur     FilterType = "blur"
	FilterInvert   FilterType = "invert"
)

type AudioFilterType string

const (
	AudioFilterNormal AudioFilterType = "normal"
	AudioFilterEcho   AudioFilterType = "echo"
	AudioFilterRobot  AudioFilterType = "robot"
	AudioFilterPhone  AudioFilterType = "phone"
	AudioFilterDeep   AudioFilterType = "deep"
)

type ReportReason string

const (
	ReasonNudity   ReportReason = "nudity"
	ReasonViolence ReportReason = "violence"
	ReasonHate     ReportReason = "hate"
	ReasonFake     ReportReason = "fake"
)

// Entry is one selectable item as presented to the user.
type Entry struct {
	Id    string `json:"id"`
	Label string `json:"label"`
	Icon  string `json:"icon"`
}

// VideoFilters is the picker order. Vignette is a valid filter type but is
// not offered.
var VideoFilters = []Entry{
	{Id: string(FilterNormal), Label: "Natural", Icon: "fa-face-smile"},
	{Id: string(FilterNoir), Label: "Noir", Icon: "fa-film"},
	{Id: string(FilterSepia), Label: "Clássico", Icon: "fa-coffee"},
	{Id: string(FilterCyber), Label: "Cyber", Icon: "fa-robot"},
	{Id: string(FilterInvert), Label: "Inverter", Icon: "fa-bolt"},
	{Id: string(FilterBlur), Label: "Privado", Icon: "fa-eye-slash"},
}

var AudioFilters = []Entry{
	{Id: string(AudioFilterNormal), Label: "Natural", Icon: "fa-microphone"},
	{Id: string(AudioFilterEcho), Label: "Eco", Icon: "fa-water"},
	{Id: string(AudioFilterRobot), Label: "Robô", Icon: "fa-robot"},
	{Id: string(AudioFilterPhone), Label: "Telefone", Icon: "fa-phone"},
	{Id: string(AudioFilterDeep), Label: "Grave", Icon: "fa-volume-low"},
}

var ReportReasons = []Entry{
	{Id: string(ReasonNudity), Label: "Conteúdo Sexual", Icon: "fa-user-slash"},
	{Id: string(ReasonViolence), Label: "Agressividade", Icon: "fa-fist-raised"},
	{Id: string(ReasonHate), Label: "Discurso de Ódio", Icon: "fa-skull"},
	{Id: string(ReasonFake), Label: "Bot / Fake", Icon: "fa-robot"},
}

// ParseFilter accepts every FilterType, including the ones not listed in
// the picker.
func ParseFilter(id string) (FilterType, bool) {
	switch f := FilterType(id); f {
	case FilterNormal, FilterNoir, FilterSepia, FilterCyber, FilterVignette, FilterBlur, FilterInvert:
		return f, true
	}
	return "", false
}

func ParseAudioFilter(id string) (AudioFilterType, bool) {
	switch f := AudioFilterType(id); f {
	case AudioFilterNormal, AudioFilterEcho, AudioFilterRobot, AudioFilterPhone, AudioFilterDeep:
		return f, true
	}
	return "", false
}

func ParseReportReason(id string) (ReportReason, bool) {
	switch r := ReportReason(id); r {
	case ReasonNudity, ReasonViolence, ReasonHate, ReasonFake:
		return r, true
	}
	return "", false
}
