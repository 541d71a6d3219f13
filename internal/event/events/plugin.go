package events

// PluginPrefix is the topic prefix reserved for script-defined topics.
const PluginPrefix = "plugin."
