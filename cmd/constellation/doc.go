// Command constellation indexes songs by their landmark fingerprints and
// identifies recordings against the index.
//
//	constellation add ~/music                 index every audio file below a directory
//	constellation match clip.wav              identify a recording
//	constellation compare song.wav clip.wav   score two recordings directly
//	constellation demo ~/music --search       random excerpt self/shift/unrelated check
//	constellation spectrogram clip.wav -o clip.png --landmarks
package main
