// SPDX-License-Identifier: MIT
/*
Package dsp implements the streaming block primitives used by the engine's
stages: Framing (stream to overlapping frames), OverlapAdd (frames back to a
stream), and the short-time Fourier pair StftAnalysis / StftSynthesis built on
top of them.

All primitives are push based and chunking independent: feeding a stream in
one call or in arbitrary pieces produces bit-identical frames and output.
Buffers are allocated at construction, the Process paths do not allocate and
may run inside a realtime stage.

Timing:

	frame shift S, frame length F
	first frame position  = S - F   (zero padded at the front)
	frame k position      = (k+1)*S - F
	OverlapAdd latency    = F samples; the last S samples of a frame start
	                        streaming out F - S samples after it is built

Round-trip reconstruction through StftAnalysis and StftSynthesis requires the
product of the analysis and synthesis windows to satisfy the constant
overlap-add condition for the chosen shift (for example square-root periodic
Hann on both sides with S = F/2). The primitives do not check this.
*/
package dsp
