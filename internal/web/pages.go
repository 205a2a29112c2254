package web

const faviconTag = `<link rel="icon" href="data:image/svg+xml,<svg xmlns='http://www.w3.org/2000/svg' viewBox='0 0 100 100'><text y='.9em' font-size='90'>🎧</text></svg>">`

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>GenreScope</title>
` + faviconTag + `
<style>
  * { margin: 0; padding: 0; box-sizing: border-box; }
  body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', sans-serif; background: #1a1a2e; color: #eee; min-height: 100vh; padding: 20px; }
  .header { display: flex; justify-content: space-between; align-items: center; margin-bottom: 24px; flex-wrap: wrap; gap: 10px; }
  h1 { font-size: 24px; color: #e94560; }
  .badge { padding: 4px 12px; border-radius: 12px; font-size: 12px; font-weight: bold; }
  .badge-checking { background: #444; }
  .badge-online { background: #4ecca3; color: #000; }
  .badge-offline { background: #e94560; }
  .panel { background: #16213e; border-radius: 12px; padding: 20px; max-width: 640px; margin: 0 auto 20px; }
  .tabs { display: flex; gap: 8px; margin-bottom: 16px; }
  .tab { flex: 1; padding: 10px; border: 1px solid #333; border-radius: 8px; background: transparent; color: #aaa; cursor: pointer; font-size: 14px; }
  .tab.active { border-color: #e94560; color: #fff; background: #0f3460; }
  .pane { display: none; }
  .pane.active { display: block; }
  .drop { border: 2px dashed #444; border-radius: 10px; padding: 30px; text-align: center; color: #888; cursor: pointer; margin-bottom: 12px; }
  .drop.over { border-color: #e94560; color: #eee; }
  .drop.has-file { border-style: solid; border-color: #4ecca3; color: #eee; }
  .btn { width: 100%; padding: 12px; border: none; border-radius: 8px; font-size: 16px; cursor: pointer; font-weight: bold; background: #e94560; color: #fff; transition: all 0.2s; }
  .btn:disabled { opacity: 0.4; cursor: not-allowed; }
  .btn-ghost { background: transparent; border: 1px solid #555; color: #aaa; font-size: 13px; padding: 6px 12px; width: auto; }
  .btn-rec { background: #4ecca3; color: #000; }
  .btn-rec.on { background: #e94560; color: #fff; }
  canvas { width: 100%; height: 90px; background: #0f3460; border-radius: 8px; margin: 12px 0; }
  .row { display: flex; align-items: center; gap: 10px; margin-bottom: 12px; font-size: 14px; color: #aaa; }
  input[type=range] { flex: 1; }
  .result { display: none; align-items: center; gap: 24px; }
  .result.visible { display: flex; }
  .ring { position: relative; width: 130px; height: 130px; flex-shrink: 0; }
  .ring svg { transform: rotate(-90deg); }
  .ring .pct { position: absolute; inset: 0; display: flex; align-items: center; justify-content: center; font-size: 26px; font-weight: bold; }
  .ring circle { transition: stroke-dashoffset 0.8s ease; }
  .top { font-size: 22px; margin-bottom: 12px; }
  .bars { flex: 1; }
  .bar { margin-bottom: 8px; font-size: 13px; }
  .bar-track { background: #0f3460; border-radius: 4px; height: 8px; overflow: hidden; }
  .bar-fill { background: #e94560; height: 100%; width: 0; transition: width 0.6s ease; }
  .toast { position: fixed; bottom: 20px; left: 50%; transform: translateX(-50%); background: #e94560; color: #fff; padding: 12px 40px 12px 16px; border-radius: 8px; display: none; max-width: 90%; }
  .toast.visible { display: block; }
  .toast button { position: absolute; right: 10px; top: 8px; background: none; border: none; color: #fff; font-size: 18px; cursor: pointer; }
  .busy { color: #aaa; font-size: 13px; text-align: center; display: none; margin-top: 10px; }
  .busy.visible { display: block; }
</style>
</head>
<body>
<div class="header">
  <h1>🎧 GenreScope</h1>
  <span class="badge badge-checking" id="health">checking…</span>
</div>

<div class="panel">
  <div class="tabs">
    <button class="tab" data-mode="file" onclick="setMode('file')">📁 File</button>
    <button class="tab" data-mode="mic" onclick="setMode('mic')">🎤 Microphone</button>
    <button class="tab" data-mode="system" onclick="setMode('system')">🔊 System audio</button>
  </div>

  <div class="pane" id="pane-file">
    <div class="drop" id="drop">Drop an audio file here or click to choose</div>
    <input type="file" id="picker" accept="audio/*" style="display:none">
    <div class="row" id="fileRow" style="display:none">
      <span id="fileName" style="flex:1"></span>
      <button class="btn btn-ghost" onclick="clearFile()">Remove</button>
    </div>
    <button class="btn" id="submitFile" onclick="post('/api/predict/file')" disabled>Classify</button>
  </div>

  <div class="pane" id="pane-mic">
    <canvas id="viz" width="600" height="90"></canvas>
    <div class="row"><span>Elapsed</span><span id="elapsed">0s</span></div>
    <button class="btn btn-rec" id="recBtn" onclick="post('/api/record/toggle')">Start recording</button>
  </div>

  <div class="pane" id="pane-system">
    <div class="row">
      <span>Duration</span>
      <input type="range" id="duration" oninput="durationLabel.textContent = this.value + 's'" onchange="setDuration(this.value)">
      <span id="durationLabel"></span>
    </div>
    <button class="btn" id="listenBtn" onclick="post('/api/system')">Listen</button>
  </div>
  <div class="busy" id="busy">Analysing…</div>
</div>

<div class="panel result" id="result">
  <div class="ring">
    <svg width="130" height="130" viewBox="0 0 130 130">
      <circle cx="65" cy="65" r="54" stroke="#0f3460" stroke-width="10" fill="none"/>
      <circle id="ringFill" cx="65" cy="65" r="54" stroke="#e94560" stroke-width="10" fill="none" stroke-linecap="round"/>
    </svg>
    <div class="pct" id="pct"></div>
  </div>
  <div class="bars">
    <div class="top" id="top"></div>
    <div id="bars"></div>
  </div>
</div>

<div class="toast" id="toast"><span id="toastMsg"></span><button onclick="post('/api/toast/dismiss')">×</button></div>

<script>
var $ = function(id) { return document.getElementById(id); };
var lastResult = null;

async function post(path, body) {
  var opts = { method: 'POST' };
  if (body !== undefined) {
    opts.headers = { 'Content-Type': 'application/json' };
    opts.body = JSON.stringify(body);
  }
  return fetch(path, opts);
}

function setMode(m) { post('/api/mode', { mode: m }); }
function setDuration(v) { post('/api/duration', { seconds: parseInt(v, 10) }); }
function clearFile() { fetch('/api/file', { method: 'DELETE' }); $('picker').value = ''; }

async function upload(file) {
  var form = new FormData();
  form.append('file', file);
  await fetch('/api/file', { method: 'POST', body: form });
}

var drop = $('drop');
drop.onclick = function() { $('picker').click(); };
$('picker').onchange = function(e) { if (e.target.files[0]) upload(e.target.files[0]); };
drop.ondragover = function(e) { e.preventDefault(); drop.classList.add('over'); };
drop.ondragleave = function() { drop.classList.remove('over'); };
drop.ondrop = function(e) {
  e.preventDefault();
  drop.classList.remove('over');
  if (e.dataTransfer.files[0]) upload(e.dataTransfer.files[0]);
};

function drawBars(bars) {
  var c = $('viz'), g = c.getContext('2d');
  g.clearRect(0, 0, c.width, c.height);
  if (!bars) return;
  var w = c.width / bars.length;
  g.fillStyle = '#e94560';
  for (var i = 0; i < bars.length; i++) {
    var h = bars[i] * c.height;
    g.fillRect(i * w, c.height - h, Math.max(w - 2, 1), h);
  }
}

function renderResult(v) {
  if (!v || !v.visible) { $('result').classList.remove('visible'); return; }
  $('result').classList.add('visible');
  var ring = $('ringFill');
  ring.style.strokeDasharray = v.circumference;
  ring.style.strokeDashoffset = v.circumference;
  requestAnimationFrame(function() { ring.style.strokeDashoffset = v.ring_offset; });
  $('pct').textContent = v.percent + '%';
  $('top').textContent = v.glyph + ' ' + v.label;
  var list = $('bars');
  list.replaceChildren();
  var fills = [];
  v.bars.forEach(function(b) {
    var row = document.createElement('div');
    row.className = 'bar';
    var caption = document.createElement('div');
    caption.textContent = b.glyph + ' ' + b.label + ' · ' + b.percent + '%';
    var track = document.createElement('div');
    track.className = 'bar-track';
    var fill = document.createElement('div');
    fill.className = 'bar-fill';
    fill.style.transitionDelay = Number(b.delay_ms) + 'ms';
    track.appendChild(fill);
    row.appendChild(caption);
    row.appendChild(track);
    list.appendChild(row);
    fills.push([fill, Number(b.width)]);
  });
  requestAnimationFrame(function() {
    fills.forEach(function(f) { f[0].style.width = f[1] + '%'; });
  });
}

function render(s) {
  var h = $('health');
  h.className = 'badge badge-' + s.health.status;
  h.textContent = s.health.status === 'online' ? '● online' + (s.health.model ? ' · ' + s.health.model : '')
    : s.health.status === 'offline' ? '● offline' : 'checking…';

  document.querySelectorAll('.tab').forEach(function(t) { t.classList.toggle('active', t.dataset.mode === s.mode); });
  ['file', 'mic', 'system'].forEach(function(m) { $('pane-' + m).classList.toggle('active', m === s.mode); });

  var hasFile = !!s.file.name;
  drop.classList.toggle('has-file', hasFile);
  drop.textContent = hasFile ? '🎵 ' + s.file.name + ' (' + (s.file.size / 1024).toFixed(1) + ' KB)' : 'Drop an audio file here or click to choose';
  $('fileRow').style.display = hasFile ? 'flex' : 'none';
  $('fileName').textContent = s.file.name;
  $('submitFile').disabled = !s.submit_enabled || s.busy;

  var rec = $('recBtn');
  rec.classList.toggle('on', s.recording);
  rec.textContent = s.recording ? '■ Stop recording' : '● Start recording';
  $('elapsed').textContent = s.elapsed + 's';
  drawBars(s.recording ? s.bars : null);

  var d = $('duration');
  d.min = s.min_duration; d.max = s.max_duration;
  if (document.activeElement !== d) { d.value = s.duration; $('durationLabel').textContent = s.duration + 's'; }
  d.disabled = s.listening;
  $('listenBtn').disabled = s.listening;
  $('listenBtn').textContent = s.listening ? 'Listening…' : 'Listen';

  $('busy').classList.toggle('visible', s.busy);
  $('toastMsg').textContent = s.toast;
  $('toast').classList.toggle('visible', !!s.toast);

  if (JSON.stringify(s.result) !== JSON.stringify(lastResult)) {
    renderResult(s.result);
    lastResult = s.result;
  }
}

var es = new EventSource('/api/events');
es.addEventListener('state', function(e) { render(JSON.parse(e.data)); });
</script>
</body>
</html>`
