package plan

// requiredArguments lists the argument keys a step's validator demands be
// present for each whitelisted tool. This mirrors pkg/tool's requireArg calls; kept here
// as an independent table rather than imported from pkg/tool, since the
// plan validator runs before the tool invoker ever dispatches.
var requiredArguments = map[string][]string{
	"bash_exec":                           {"command"},
	"display_text":                        {"text"},
	"execution_summary":                   {},
	"file_create":                         {"path"},
	"file_edit":                           {"path", "old_text"},
	"file_glob":                           {"pattern"},
	"file_read":                           {"path"},
	"file_search":                         {"pattern"},
	"file_write":                          {"path", "contents"},
	"git_diff":                            {},
	"git_log":                             {},
	"git_status":                          {},
	"lsp_check":                           {"path"},
	"memory_query":                        {"query"},
	"references_from_file_to_symbol_name": {"file_path", "symbol_name"},
	"references_to_symbol_name":           {"symbol_name"},
	"splice_patch":                        {"path", "patch"},
	"splice_plan":                         {"plan"},
	"symbols_in_file":                     {"file_path"},
	"wc":                                  {"path"},
}
