// Package preview composes the isolated preview document from editor files.
//
// Build is a pure function: identical inputs always produce byte-identical
// output. It performs no validation of the user's markup, styles, or script;
// invalid code surfaces at execution time inside the isolated context.
package preview

import (
	"encoding/json"
	"fmt"

	"github.com/webpadhq/webpad/internal/shared/types"
)

// TailwindCDN delivers the utility-CSS framework; its loader tag is
// emitted only when the flag is enabled.
const TailwindCDN = "https://cdn.tailwindcss.com"

// csp forbids all network-origin content by default. Inline and evaluated
// script are required for user code and the instrumentation; script may
// additionally come from the two allowed CDN origins; images and media may
// load from anywhere including data/blob URIs.
const csp = `
      default-src 'none';
      script-src 'unsafe-inline' 'unsafe-eval' https://cdn.tailwindcss.com https://cdn.jsdelivr.net;
      style-src 'unsafe-inline' https://fonts.googleapis.com https://cdn.tailwindcss.com;
      font-src https://fonts.gstatic.com data:;
      img-src * data: blob:;
      media-src * data: blob:;
      connect-src *;
    `

// Instrumentation returns the script block injected into every preview
// document. It wraps the console methods and the uncaught-error and
// unhandled-rejection hooks, serializes arguments, and posts structured
// events to the host tagged with the given channel identifier. The original
// console behavior is preserved. Delivery is fire-and-forget.
//
// Serialization rules: strings pass through, null/undefined become literal
// tokens, functions are stringified, other objects are JSON-serialized with
// "[Unserializable]" substituted when serialization throws.
func Instrumentation(channelID string) string {
	channel, _ := json.Marshal(channelID)

	return fmt.Sprintf(`(function() {
  var __channel = %s;

  function __send(level, args) {
    var serialized = Array.prototype.map.call(args, function(a) {
      try {
        if (a === null) return 'null';
        if (a === undefined) return 'undefined';
        if (typeof a === 'function') return a.toString();
        if (typeof a === 'object') return JSON.stringify(a, null, 2);
        return String(a);
      } catch(e) { return '[Unserializable]'; }
    });
    try {
      window.parent.postMessage({
        __webpadConsole: true,
        channel: __channel,
        level: level,
        args: serialized,
        timestamp: Date.now()
      }, '*');
    } catch(e) {}
  }

  var _log   = console.log.bind(console);
  var _warn  = console.warn.bind(console);
  var _error = console.error.bind(console);
  var _info  = console.info.bind(console);
  var _debug = console.debug.bind(console);

  console.log   = function() { __send('log',   arguments); _log.apply(console, arguments); };
  console.warn  = function() { __send('warn',  arguments); _warn.apply(console, arguments); };
  console.error = function() { __send('error', arguments); _error.apply(console, arguments); };
  console.info  = function() { __send('info',  arguments); _info.apply(console, arguments); };
  console.debug = function() { __send('debug', arguments); _debug.apply(console, arguments); };

  window.addEventListener('error', function(e) {
    __send('error', [
      (e.message || 'Unknown error') +
      (e.filename ? ' (' + e.filename + ':' + e.lineno + ':' + e.colno + ')' : '')
    ]);
  });

  window.addEventListener('unhandledrejection', function(e) {
    __send('error', ['Unhandled Promise rejection: ' + (e.reason ? String(e.reason) : 'Unknown')]);
  });
})();`, channel)
}

// Build composes the complete isolated document: optional utility-CSS
// loader, instrumentation, inlined styles, the user's markup verbatim in
// the body, and the user's script inlined last. The channelID is embedded
// opaquely; Build never inspects it.
func Build(files types.EditorFiles, useTailwind bool, channelID string) string {
	tailwindScript := ""
	if useTailwind {
		tailwindScript = fmt.Sprintf(`<script src="%s"></script>`, TailwindCDN)
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1.0" />
  <meta http-equiv="Content-Security-Policy"
    content="%s" />
  %s
  <script>
%s
  </script>
  <style>
%s
  </style>
</head>
<body>
%s
<script>
%s
</script>
</body>
</html>`, csp, tailwindScript, Instrumentation(channelID), files.Styles, files.Markup, files.Script)
}
